package transports

import "golang.org/x/net/websocket"

// DialWS connects to a websocket console bridge. The returned conn is an
// io.ReadWriteCloser carrying raw console bytes in binary frames.
func DialWS(url, origin string) (*websocket.Conn, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

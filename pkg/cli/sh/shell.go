// Package sh provides the interactive console shell.
package sh

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	fx "github.com/openecu/tune.go/pkg/framework"
	"github.com/openecu/tune.go/pkg/link"
	"github.com/openecu/tune.go/pkg/link/env"
	"github.com/openecu/tune.go/pkg/link/mqtt"
	"github.com/openecu/tune.go/pkg/link/transports"
)

// Shell provides ishell backed interactive console.
type Shell struct {
	Interactive bool
	AutoConnect bool

	Shell  *ishell.Shell
	Config *env.Config
	Conn   *Conn
}

// Conn is a running session bound to an open transport.
type Conn struct {
	Ctx     context.Context
	Cancel  func()
	Name    string
	Session *link.Session

	closer io.Closer
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "
)

// readyTimeout bounds how long connect waits for the handshake.
const readyTimeout = 2 * time.Second

var (
	// flags

	evalOnly bool

	// commands
	commands = []*ishell.Cmd{
		&PortsCmd,
		&ConnectCmd,
		&RemoteCmd,
		&DisconnectCmd,
		&IDCmd,
		&SendCmd,
		&CmdCmd,
		&StreamCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requiring a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// FormatOutcome prints a handshake outcome into a friendly string.
func FormatOutcome(out link.Outcome) string {
	switch out.Kind {
	case link.OutcomeBootloader:
		return fmt.Sprintf("bootloader v%d.%d", out.VersionMajor, out.VersionMinor)
	case link.OutcomeIdentity:
		if !out.ChecksumOK {
			return fmt.Sprintf("firmware %q (checksum mismatch)", out.Identity)
		}
		return fmt.Sprintf("firmware %q", out.Identity)
	default:
		return "firmware (identity unavailable)"
	}
}

// SelectPort enumerates serial ports and asks for a choice.
func (s *Shell) SelectPort() (string, error) {
	ports, err := transports.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}
	var index int
	if len(ports) > 1 {
		if !s.Interactive {
			return "", fmt.Errorf("more than 1 ports found in non-interactive mode")
		}
		index = s.Shell.MultiChoice(ports, "Which port to connect?")
	}
	return ports[index], nil
}

// start runs a session over an opened transport and waits for the
// handshake to conclude.
func (s *Shell) start(name string, rw io.ReadWriter, closer io.Closer) (link.Outcome, error) {
	conn := &Conn{Name: name, Session: link.NewSession(rw), closer: closer}
	conn.Ctx, conn.Cancel = context.WithCancel(context.Background())
	if runnable, ok := rw.(fx.Runnable); ok {
		go runnable.Run(conn.Ctx)
	}
	if s.Conn != nil {
		s.Disconnect()
	}
	s.Conn = conn
	go conn.Session.Run(conn.Ctx)

	waitCtx, cancel := context.WithTimeout(conn.Ctx, readyTimeout)
	defer cancel()
	out, err := conn.Session.WaitReady(waitCtx)
	if err != nil {
		s.Disconnect()
		return link.Outcome{}, err
	}
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return out, nil
}

// Connect opens a transport by name and runs the handshake. Names
// starting with ws:// or wss:// dial a websocket bridge; anything else
// is a local serial port.
func (s *Shell) Connect(name string, baud int) (link.Outcome, error) {
	if strings.HasPrefix(name, "ws://") || strings.HasPrefix(name, "wss://") {
		conn, err := transports.DialWS(name, "http://localhost/")
		if err != nil {
			return link.Outcome{}, err
		}
		return s.start(name, conn, conn)
	}
	port, err := transports.OpenSerial(transports.SerialConfig{Port: name, BaudRate: baud})
	if err != nil {
		return link.Outcome{}, err
	}
	return s.start(name, port, port)
}

// ConnectRemote connects a bridged board via the MQTT broker.
func (s *Shell) ConnectRemote(device string) (link.Outcome, error) {
	queue, err := s.Config.NewQueue()
	if err != nil {
		return link.Outcome{}, err
	}
	token := queue.Connect()
	token.Wait()
	if err = token.Error(); err != nil {
		return link.Outcome{}, err
	}
	rw := mqtt.NewReadWriter(queue).ForConsole(device)
	return s.start("mqtt:"+device, rw, queue)
}

// Disconnect tears down the current connection.
func (s *Shell) Disconnect() {
	if s.Conn != nil {
		s.Conn.Cancel()
		if s.Conn.closer != nil {
			s.Conn.closer.Close()
		}
		s.Conn = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Config.Port != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Config.Port)
		}
		out, err := s.Connect(s.Config.Port, s.Config.BaudRate)
		if err != nil {
			log.Fatalf("connect %q failed: %v", s.Config.Port, err)
		}
		if s.Interactive {
			s.Shell.Println(FormatOutcome(out))
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}

var (
	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ports, err := transports.ListPorts()
			if err != nil {
				c.Err(err)
				return
			}
			if len(ports) == 0 {
				c.Println("No serial ports found")
				return
			}
			for _, port := range ports {
				c.Println(port)
			}
		},
	}

	// ConnectCmd connects a board.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[PORT|WS-URL [BAUD]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			name, baud := s.Config.Port, s.Config.BaudRate
			if len(c.Args) >= 1 {
				name = c.Args[0]
			}
			if len(c.Args) >= 2 {
				b, err := strconv.Atoi(c.Args[1])
				if err != nil {
					c.Err(fmt.Errorf("invalid baud rate %q", c.Args[1]))
					return
				}
				baud = b
			}
			if name == "" {
				var err error
				if name, err = s.SelectPort(); err != nil {
					c.Err(err)
					return
				}
			}
			out, err := s.Connect(name, baud)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(FormatOutcome(out))
		},
	}

	// RemoteCmd connects a bridged board via the broker.
	RemoteCmd = ishell.Cmd{
		Name:    "remote",
		Aliases: []string{"r"},
		Help:    "[DEVICE]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			device := s.Config.Device
			if len(c.Args) >= 1 {
				device = c.Args[0]
			}
			out, err := s.ConnectRemote(device)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(FormatOutcome(out))
		},
	}

	// DisconnectCmd disconnects the current board.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// IDCmd prints the handshake outcome.
	IDCmd = ishell.Cmd{
		Name: "id",
		Help: "",
		Func: MustBeConnected(func(c *ishell.Context) {
			c.Println(FormatOutcome(ShellFrom(c).Conn.Session.Outcome()))
		}),
	}

	// SendCmd writes raw bytes.
	SendCmd = ishell.Cmd{
		Name: "send",
		Help: "HEXBYTES",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("hex bytes expected"))
				return
			}
			data, err := hex.DecodeString(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			if _, err = ShellFrom(c).Conn.Session.Write(data); err != nil {
				c.Err(err)
			}
		}),
	}

	// CmdCmd sends a framed command.
	CmdCmd = ishell.Cmd{
		Name: "cmd",
		Help: "CODE [HEXPAYLOAD]",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("command code expected"))
				return
			}
			code, err := strconv.ParseUint(c.Args[0], 0, 8)
			if err != nil {
				c.Err(fmt.Errorf("invalid command code %q", c.Args[0]))
				return
			}
			var payload []byte
			if len(c.Args) >= 2 {
				if payload, err = hex.DecodeString(c.Args[1]); err != nil {
					c.Err(err)
					return
				}
			}
			if err = ShellFrom(c).Conn.Session.SendFrame(byte(code), payload); err != nil {
				c.Err(err)
			}
		}),
	}

	// StreamCmd dumps inbound bytes until the link goes quiet.
	StreamCmd = ishell.Cmd{
		Name:    "stream",
		Aliases: []string{"s"},
		Help:    "[SECONDS]",
		Func: MustBeConnected(func(c *ishell.Context) {
			quiet := time.Second
			if len(c.Args) >= 1 {
				secs, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid duration %q", c.Args[0]))
					return
				}
				quiet = time.Duration(secs) * time.Second
			}
			stream := ShellFrom(c).Conn.Session.Stream()
			for {
				select {
				case data, ok := <-stream:
					if !ok {
						c.Println("stream closed")
						return
					}
					c.Printf("%s", hex.Dump(data))
				case <-time.After(quiet):
					return
				}
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}

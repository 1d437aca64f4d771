// Package link detects which protocol a board speaks and performs the
// connect-time handshake.
package link

// A board fresh out of reset speaks one of two mutually exclusive
// protocols on its console port:
//
//   - its bootloader, which announces itself unprompted with a fixed
//     8-byte header carrying a magic signature and a version pair;
//   - its firmware console, which stays silent until asked and answers
//     framed requests (see package wire).
//
// The handshake runs exactly once per connection: probe for the
// bootloader header, and if absent request the firmware identity
// string. Either way the port then switches to free-form streaming
// owned by the caller. The transport is lent to this package for the
// duration of the handshake only; it is never closed or reopened here.

// Package limits centralises the size limits shared by the session layer,
// the UDP transport and the node so that every component agrees on what a
// well-formed packet looks like.
//
// All validators return errors wrapping ErrMessageEmpty, ErrMessageTooSmall
// or ErrMessageTooLarge, suitable for errors.Is.
package limits

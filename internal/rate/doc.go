// Package rate implements the advisory attempt gate that runs before any
// backend call.
//
// # Window semantics
//
// [Memory] keeps a sliding log of attempt times per action class. [Redis]
// uses fixed-window counters: INCR + PEXPIRE on first hit, with the
// remaining wait taken from PTTL. Keys are laid out as "<prefix>:rl:<action>".
//
// Neither backend is a security boundary; the hosted service must enforce
// its own throttling.
package rate

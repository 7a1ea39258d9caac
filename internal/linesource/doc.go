// Package linesource connects to firmware console output without Moonraker.
//
// Klipper exposes a pseudo-terminal (by default /tmp/printer) that accepts
// G-code and prints responses, including prompt action comments. A Port
// reads that stream line by line and doubles as a command sink: every
// written script is acknowledged when the firmware's "ok" for it arrives.
//
// A Port over a plain file replays recorded console output.
package linesource

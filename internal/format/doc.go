// Package format renders scheduler, calendar and Gmail results for the
// terminal: aligned tables via text/tabwriter, plain line output and
// indented JSON.
package format

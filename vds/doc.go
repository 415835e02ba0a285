// Package vds decodes VDS (Valve Data Sheet) numbers into their
// constituent segments using a declarative grammar.
//
// A VDS number is a compact uppercase code of the form
//
//	{Prefix}{Bore}[M]{PipingClass}[Modifiers]{EndConnection}
//
// for example BSFA1R (Ball valve, Full bore, class A1, RF end) or
// BSFMG1LNJ (Ball valve, Full bore, Metal seated, class G1, Low temp,
// NACE, RTJ end). The grammar is configured via [Rules], loadable from
// YAML with [LoadRules] or built in with [DefaultRules].
package vds

// Package datasheet turns a decoded VDS number into a fully populated,
// traceable engineering datasheet.
//
// The output schema ([Schema]) is an ordered set of field definitions,
// each a tagged variant per source kind (decoded VDS attribute,
// piping-class column, standard clause, pre-built index column,
// material selection, calculated formula, or fixed constant). The
// [Resolver] produces one [Field] per definition, in schema order, and
// the assembler composes them into a [Datasheet] with completion and
// validation metadata.
//
// Everything is immutable after [New]; an [Engine] is safe for
// concurrent use from any number of goroutines.
package datasheet

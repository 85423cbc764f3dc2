// Package table holds the in-memory tabular model and the three
// transformation engines that operate on it: Filter, Aggregate and Join.
//
// A [Table] is an ordered list of typed [Column] values of equal length.
// Tables never change after construction; every engine returns a new Table
// and leaves its inputs untouched.
//
// # Specifications
//
// Engine parameters are validated when they are built, not when they run:
//
//	clause, err := table.NewClause("val", table.OpGreaterThan, 15)
//	spec, err := table.NewGroupSpec([]string{"cat"}, []string{"val"}, []table.AggFunc{table.AggSum})
//	join, err := table.NewJoinSpec(table.LeftJoin, []string{"id"}, []string{"id"})
//
// Checks that need a table (column existence, operand types) run before any
// row is touched.
//
// # Errors
//
// Unknown columns produce a *[LookupError]; structurally invalid
// specifications produce a *[ConfigurationError]. Both match the sentinels
// [ErrLookup] and [ErrConfiguration] with errors.Is.
//
// # Nulls and ordering
//
// A nil value is a null. Aggregation drops rows with a null group key and
// emits groups in order of first appearance. Join never matches null keys.
// Sorting places nulls last in both directions.
package table

// Package glyph maps engine column type names to the short display
// symbols used in the catalog tree and result headers.
package glyph

import "strings"

// shortTypes maps a normalized Athena/Trino type name to its display glyph.
var shortTypes = map[string]string{
	"array":     "[]",
	"bigint":    "##",
	"boolean":   "t/f",
	"char":      "s",
	"date":      "d",
	"decimal":   "#.#",
	"double":    "#.#",
	"float":     "#.#",
	"integer":   "#",
	"interval":  "|-|",
	"json":      "{}",
	"real":      "#.#",
	"smallint":  "#",
	"string":    "t",
	"time":      "t",
	"timestamp": "ts",
	"tinyint":   "#",
	"varchar":   "t",
	"varbinary": "b",
	"struct":    "{}",
	"map":       "{}",
}

// Short returns the display glyph for an engine type name.
// Parameterized forms like "varchar(255)" or "decimal(10,2)" and
// qualified forms like "timestamp with time zone" reduce to their
// base type. Unknown types map to "?".
func Short(typeName string) string {
	base := typeName
	if i := strings.IndexByte(base, '('); i >= 0 {
		base = base[:i]
	}
	if i := strings.IndexByte(base, ' '); i >= 0 {
		base = base[:i]
	}
	if g, ok := shortTypes[strings.ToLower(base)]; ok {
		return g
	}
	return "?"
}

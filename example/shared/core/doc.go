// Package core contains the example domain entities mapped by the document
// mapping layer.
package core

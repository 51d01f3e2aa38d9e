// Package identity implements C1: canonical path/SHA identity for
// directories and files, plus the title-case normalization rule applied
// to every stored filename.
package identity

package common

import (
	"github.com/inhies/go-bytesize"
)

// GetSize renders a byte count the way listings and the CLI display it.
func GetSize(sizeVal int64) string {
	if sizeVal < 0 {
		sizeVal = 0
	}
	return bytesize.New(float64(sizeVal)).String()
}

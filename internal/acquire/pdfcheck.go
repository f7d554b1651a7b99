// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// verifyPDF opens path as a PDF and returns its page count. The parser
// panics on some malformed inputs; those are reported as errors.
func verifyPDF(path string) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return 0, errors.New("PDF has no pages")
	}
	return r.NumPage(), nil
}

//go:build !cgo

package ocr

func (e *Engine) recognize(png []byte) (string, []rawWord, error) {
	return "", nil, ErrUnavailable
}

// Version reports that no engine is linked.
func Version() (string, error) {
	return "", ErrUnavailable
}

package sobfile

import "github.com/pkg/errors"

var (
	InvalidMagic      = errors.New("Invalid header (magic value)")
	TruncatedFile     = errors.New("Truncated file")
	SizeMismatch      = errors.New("Value size does not match item size")
	SizeLocked        = errors.New("Size cannot be changed on a non-empty file")
	InvalidHeaderSize = errors.New("Header size below minimum")
	InvalidItemSize   = errors.New("Invalid item size")
	OutOfRange        = errors.New("Index out of range")
	NotFound          = errors.New("Value not found")
	NotImplemented    = errors.New("Not implemented")
	FileClosed        = errors.New("File closed")
	FileAlreadyClosed = errors.New("File already closed")
)

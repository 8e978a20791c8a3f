package export

import "github.com/pkg/errors"

var (
	ErrNothingToExport = errors.New("no favorite turns to export")
	ErrUnknownFormat   = errors.New("unknown export format")
)

package tabular

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	apperrors "github.com/gochang/agri-notify/internal/errors"
)

// Format identifies a tabular source encoding.
type Format string

// Supported formats.
const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var zipMagic = []byte("PK\x03\x04")

var importWrapper = apperrors.NewWrapper("tabular", "import")

// DetectFormat picks the format from the file extension.
func DetectFormat(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv", ".txt":
		return FormatCSV, nil
	case "":
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadSource reads r as format. An empty format is sniffed from the content.
func ReadSource(format Format, r io.Reader) (Sheet, error) {
	br := bufio.NewReader(r)
	if format == "" {
		head, _ := br.Peek(len(zipMagic))
		if bytes.Equal(head, zipMagic) {
			format = FormatXLSX
		} else {
			format = FormatCSV
		}
	}
	switch format {
	case FormatXLSX:
		return ReadXLSX(br, "")
	case FormatCSV:
		return ReadCSV(br)
	default:
		return Sheet{}, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format)
	}
}

// ImportFile reads an uploaded or local file and maps it to projects.
// A source that cannot be read fails as a whole with a user-facing message;
// a readable but empty sheet yields an empty Result and no error.
func ImportFile(filename string, r io.Reader) (Result, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return Result{}, importWrapper.Wrap(err, "지원하지 않는 파일 형식입니다. .xlsx 또는 .csv 파일을 사용해주세요.")
	}
	sheet, err := ReadSource(format, r)
	if err != nil {
		return Result{}, importWrapper.Wrapf(
			fmt.Errorf("%w: %w", apperrors.ErrUnreadableSource, err),
			"엑셀 파일을 읽는 중 오류가 발생했습니다: %s", err.Error())
	}
	return Import(sheet), nil
}

package export

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// TextHeader is the single column header of exported spreadsheets.
const TextHeader = "Extracted Text"

// WriteXLSX writes a one-sheet workbook holding text under TextHeader.
func WriteXLSX(w io.Writer, text string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}
	sheet.AddRow().AddCell().SetString(TextHeader)
	sheet.AddRow().AddCell().SetString(text)

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write xlsx")
	}
	return nil
}

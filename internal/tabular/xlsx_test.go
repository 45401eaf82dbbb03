package tabular

import (
	"archive/zip"
	"bytes"
	"io"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/gochang/agri-notify/internal/project"
)

// buildWorkbook writes the header plus typed cells the way an office
// employee would fill the template in Excel.
func buildWorkbook(t *testing.T) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	const sheet = "Sheet1"

	for c, title := range Header {
		axis, err := excelize.CoordinatesToCellName(c+1, 1)
		require.NoError(t, err)
		require.NoError(t, f.SetCellStr(sheet, axis, title))
	}

	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 14})
	require.NoError(t, err)
	koreanDate := `yyyy"년" m"월" d"일"`
	koreanDateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &koreanDate})
	require.NoError(t, err)

	// Row 2: mixed types.
	require.NoError(t, f.SetCellStr(sheet, "A2", "agr001"))
	require.NoError(t, f.SetCellStr(sheet, "B2", "agriculture"))
	require.NoError(t, f.SetCellStr(sheet, "C2", "  중소농기계 지원 "))
	require.NoError(t, f.SetCellStr(sheet, "D2", "2025.03.01~03.31"))
	require.NoError(t, f.SetCellStr(sheet, "E2", "농기계구입"))
	require.NoError(t, f.SetCellFloat(sheet, "F2", 2000000, -1, 64))
	require.NoError(t, f.SetCellStr(sheet, "G2", "농업인"))
	require.NoError(t, f.SetCellStr(sheet, "H2", "농업정책과"))
	require.NoError(t, f.SetCellFloat(sheet, "J2", 45713, -1, 64)) // 2025-02-25
	require.NoError(t, f.SetCellStyle(sheet, "J2", "J2", dateStyle))
	require.NoError(t, f.SetCellBool(sheet, "K2", true))
	require.NoError(t, f.SetCellStr(sheet, "L2", "063-560-2456"))

	// Row 3: numeric id, Korean custom date format, textual TRUE.
	require.NoError(t, f.SetCellFloat(sheet, "A3", 2002, -1, 64))
	require.NoError(t, f.SetCellStr(sheet, "B3", "forestry"))
	require.NoError(t, f.SetCellStr(sheet, "C3", "임업직불제"))
	require.NoError(t, f.SetCellStr(sheet, "D3", "2025.06.01~06.30"))
	require.NoError(t, f.SetCellFloat(sheet, "J3", 45803.5, -1, 64)) // 2025-05-26 noon
	require.NoError(t, f.SetCellStyle(sheet, "J3", "J3", koreanDateStyle))
	require.NoError(t, f.SetCellStr(sheet, "K3", "true"))
	// Formulas; cached results are filled in below as Excel would save them.
	require.NoError(t, f.SetCellFormula(sheet, "F3", "1+2"))
	require.NoError(t, f.SetCellFormula(sheet, "G3", `" 임업인 "&""`))

	// Row 4: no name, must be skipped.
	require.NoError(t, f.SetCellStr(sheet, "A4", "liv001"))

	// Row 6 (row 5 left empty): valid minimal row.
	require.NoError(t, f.SetCellStr(sheet, "A6", "fish002"))
	require.NoError(t, f.SetCellStr(sheet, "C6", "수산물택배"))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return withCachedResults(t, buf.Bytes(), map[string]string{
		"F3": `<c r="F3"><f>1+2</f><v>3</v></c>`,
		"G3": `<c r="G3" t="str"><f>" 임업인 "&amp;""</f><v> 임업인 </v></c>`,
	})
}

// withCachedResults rewrites cells of the first sheet with the given XML.
// excelize never stores a formula result, a saved Excel file always does.
func withCachedResults(t *testing.T, data []byte, cells map[string]string) *bytes.Buffer {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, file := range zr.File {
		rc, err := file.Open()
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())

		if file.Name == "xl/worksheets/sheet1.xml" {
			for axis, xml := range cells {
				re := regexp.MustCompile(`<c r="` + axis + `"[^>]*>.*?</c>`)
				require.True(t, re.Match(body), "cell %s not found", axis)
				body = re.ReplaceAllLiteral(body, []byte(xml))
			}
		}
		w, err := zw.Create(file.Name)
		require.NoError(t, err)
		_, err = w.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return &out
}

func TestReadXLSX_TypedCells(t *testing.T) {
	t.Parallel()

	sheet, err := ReadXLSX(buildWorkbook(t), "")
	require.NoError(t, err)
	assert.Equal(t, "Sheet1", sheet.Name)
	require.Len(t, sheet.Rows, 6)

	assert.Equal(t, KindNumber, sheet.Rows[1][ColSupport2].Kind)
	assert.Equal(t, KindDate, sheet.Rows[1][ColNotificationDate].Kind)
	assert.Equal(t, KindBool, sheet.Rows[1][ColIsActive].Kind)
	assert.Equal(t, KindBlank, sheet.Rows[1][ColEtc].Kind)
	formula := sheet.Rows[2][ColSupport2]
	assert.Equal(t, KindFormula, formula.Kind)
	assert.Equal(t, "1+2", formula.Formula)
	require.NotNil(t, formula.Cached)
	assert.Equal(t, KindNumber, formula.Cached.Kind)
	assert.Equal(t, KindText, sheet.Rows[2][ColTarget].Cached.Kind)

	res := Import(sheet)
	require.Len(t, res.Projects, 3)
	require.Len(t, res.Skipped, 2, "nameless row and empty row")

	first := res.Projects[0]
	assert.Equal(t, "agr001", first.ID)
	assert.Equal(t, "중소농기계 지원", first.Name)
	assert.Equal(t, "2000000", first.Support2)
	assert.Equal(t, "2025.02.25", first.NotificationDate)
	assert.True(t, first.IsActive)
	assert.Equal(t, "063-560-2456", first.Phone)
	assert.Empty(t, first.Email)

	second := res.Projects[1]
	assert.Equal(t, "2002", second.ID)
	assert.Equal(t, "2025.05.26", second.NotificationDate)
	assert.Equal(t, "3.0", second.Support2, "cached formula number")
	assert.Equal(t, "임업인", second.Target, "cached formula text")
	assert.True(t, second.IsActive)

	assert.Equal(t, "fish002", res.Projects[2].ID)
	assert.False(t, res.Projects[2].IsActive)
}

func TestReadXLSX_EmptyWorkbook(t *testing.T) {
	t.Parallel()

	f := excelize.NewFile()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	res, err := ImportFile("empty.xlsx", &buf)
	require.NoError(t, err)
	assert.Empty(t, res.Projects)
	assert.Zero(t, res.DataRows)
}

func TestReadXLSX_UnknownSheet(t *testing.T) {
	t.Parallel()

	_, err := ReadXLSX(buildWorkbook(t), "없는시트")
	assert.Error(t, err)
}

func TestXLSXRoundTrip(t *testing.T) {
	t.Parallel()

	samples := project.Samples()
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, samples))

	sheet, err := ReadXLSX(&buf, "")
	require.NoError(t, err)
	assert.Equal(t, "사업목록", sheet.Name)
	assert.Equal(t, KindDate, sheet.Rows[1][ColNotificationDate].Kind)

	res := Import(sheet)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, samples, res.Projects)
}

func TestIsDateFormat(t *testing.T) {
	t.Parallel()

	for _, id := range []int{14, 17, 22, 31, 57} {
		assert.True(t, isDateNumFmt(id), "builtin %d", id)
	}
	for _, id := range []int{0, 1, 4, 10, 49} {
		assert.False(t, isDateNumFmt(id), "builtin %d", id)
	}

	dateCodes := []string{"yyyy.mm.dd", "yyyy-mm-dd;@", `yyyy"년" m"월" d"일"`, "[$-412]yyyy/mm/dd", "dd/mm/yy h:mm AM/PM"}
	for _, code := range dateCodes {
		assert.True(t, isDateFormatCode(code), code)
	}
	plainCodes := []string{"#,##0", "0.00%", "h:mm:ss", "@", `"원"#,##0`, ""}
	for _, code := range plainCodes {
		assert.False(t, isDateFormatCode(code), code)
	}
}

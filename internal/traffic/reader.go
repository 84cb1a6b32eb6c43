package traffic

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// =============================================================================
// 인코딩
// =============================================================================

// Encoding names reported by DecodeBytes
const (
	EncodingUTF8   = "utf-8"
	EncodingCP949  = "cp949"
	EncodingLatin1 = "latin1"
)

// DecodeBytes 공공데이터 파일 디코딩
// UTF-8(BOM 제거) → CP949/EUC-KR → latin1 순서로 시도
func DecodeBytes(b []byte) (string, string, error) {
	if utf8.Valid(b) {
		out, err := unicode.UTF8BOM.NewDecoder().Bytes(b)
		if err != nil {
			return "", "", fmt.Errorf("decode utf-8: %w", err)
		}
		return string(out), EncodingUTF8, nil
	}

	if out, err := korean.EUCKR.NewDecoder().Bytes(b); err == nil && !bytes.ContainsRune(out, utf8.RuneError) {
		return string(out), EncodingCP949, nil
	}

	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", fmt.Errorf("decode latin1: %w", err)
	}
	return string(out), EncodingLatin1, nil
}

// =============================================================================
// CSV
// =============================================================================

// ReadCSV 인코딩 자동 판별 후 CSV 전체 행 반환
func ReadCSV(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	text, _, err := DecodeBytes(raw)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

// ReadCSVFile opens path and calls ReadCSV
func ReadCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadCSV(f)
}

// =============================================================================
// Excel
// =============================================================================

// ReadXLSX xlsx 시트의 모든 행 (sheet 비어 있으면 첫 시트)
func ReadXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// ReadHTMLTable 첫 번째 <table>을 행렬로 변환
// 공공데이터 포털의 .xls 파일 중 상당수는 HTML 테이블임.
// colspan/rowspan으로 가려진 칸은 빈 문자열로 채움
func ReadHTMLTable(r io.Reader) ([][]string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	text, _, err := DecodeBytes(raw)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w: no <table> element", ErrUnsupportedFormat)
	}

	// rowSpans[col] = 아래 행에서 더 가려야 할 칸 수
	var rowSpans []int
	var rows [][]string

	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var row []string
		col := 0

		skipSpanned := func() {
			for col < len(rowSpans) && rowSpans[col] > 0 {
				rowSpans[col]--
				row = append(row, "")
				col++
			}
		}

		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			skipSpanned()

			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")

			for k := 0; k < colspan; k++ {
				if k == 0 {
					row = append(row, strings.TrimSpace(cell.Text()))
				} else {
					row = append(row, "")
				}
				for len(rowSpans) <= col {
					rowSpans = append(rowSpans, 0)
				}
				rowSpans[col] = rowspan - 1
				col++
			}
		})
		skipSpanned()

		rows = append(rows, row)
	})

	return rows, nil
}

func spanAttr(cell *goquery.Selection, name string) int {
	v, ok := cell.Attr(name)
	if !ok {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// =============================================================================
// Dispatch
// =============================================================================

var oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}

// ReadSheet 확장자와 내용 스니핑으로 리더 선택
func ReadSheet(path, sheet string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, sheet)

	case ".csv", ".txt":
		return ReadCSVFile(path)

	case ".html", ".htm":
		return readHTMLFile(path)

	case ".xls":
		head, err := sniff(path, 1024)
		if err != nil {
			return nil, err
		}
		if bytes.HasPrefix(head, oleMagic) {
			return nil, fmt.Errorf("%w: legacy BIFF .xls (%s), re-save as .xlsx", ErrUnsupportedFormat, path)
		}
		lower := bytes.ToLower(head)
		if bytes.Contains(lower, []byte("<table")) || bytes.Contains(lower, []byte("<html")) {
			return readHTMLFile(path)
		}
		// 확장자만 .xls 인 xlsx (zip)
		if bytes.HasPrefix(head, []byte("PK")) {
			return ReadXLSX(path, sheet)
		}
		return ReadCSVFile(path)
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

func readHTMLFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ReadHTMLTable(f)
}

func sniff(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("sniff %s: %w", path, err)
	}
	return buf[:read], nil
}

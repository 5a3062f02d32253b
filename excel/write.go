// Package excel excel功能模块
package excel

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx/v3"
)

// FileData Excel文件结构
type FileData struct {
	fileName   string
	colStyle   *xlsx.Style
	writeFile  *xlsx.File
	writeSheet *xlsx.Sheet
}

// GetRows 获取制定sheet的所有行
func (fd *FileData) GetRows(sheetname string) [][]string {
	sheet, ok := fd.writeFile.Sheet[sheetname]
	if !ok {
		return make([][]string, 0)
	}
	ss := make([][]string, 0, sheet.MaxRow)
	l := sheet.MaxCol
	sheet.ForEachRow(func(r *xlsx.Row) error {
		rs := make([]string, 0, l)
		r.ForEachCell(func(c *xlsx.Cell) error {
			rs = append(rs, c.Value)
			return nil
		})
		if len(rs) > 0 {
			ss = append(ss, rs)
		}
		return nil
	})
	return ss
}

// AddSheet 添加sheet，之后的 AddRow 和 SetColume 写入该sheet
func (fd *FileData) AddSheet(sheetname string) (*xlsx.Sheet, error) {
	var err error
	fd.writeSheet, err = fd.writeFile.AddSheet(sheetname)
	if err != nil {
		return nil, errors.Wrap(err, "excel-sheet创建失败")
	}
	return fd.writeSheet, nil
}

// AddRow 在当前sheet添加行
// cells： 每个单元格的数据，任意格式
func (fd *FileData) AddRow(cells ...any) {
	if fd.writeSheet == nil {
		fd.writeSheet, _ = fd.AddSheet("newsheet" + strconv.Itoa(len(fd.writeFile.Sheets)+1))
	}
	row := fd.writeSheet.AddRow()
	row.SetHeight(15)
	for _, v := range cells {
		c := row.AddCell()
		switch x := v.(type) {
		case string:
			// 对话内容可能以 = 开头，不能当作公式
			c.SetString(x)
		default:
			c.SetValue(x)
		}
	}
}

// SetColume 设置列头
// columeName: 列头名，有多少写多少个
func (fd *FileData) SetColume(columeName ...string) {
	if fd.writeSheet == nil {
		fd.writeSheet, _ = fd.AddSheet("newsheet" + strconv.Itoa(len(fd.writeFile.Sheets)+1))
	}
	row := fd.writeSheet.AddRow()
	row.SetHeight(20)
	for _, v := range columeName {
		cell := row.AddCell()
		cell.SetStyle(fd.colStyle)
		cell.SetString(v)
	}
}

// SetColWidth 设置当前sheet的列宽，列从1开始
func (fd *FileData) SetColWidth(min, max int, width float64) {
	if fd.writeSheet == nil {
		return
	}
	fd.writeSheet.SetColWidth(min, max, width)
}

// Write 将excel数据写入到writer
func (fd *FileData) Write(w io.Writer) error {
	return fd.writeFile.Write(w)
}

// ToFile 保存excel数据到文件，f 为空时使用创建时的文件名
// 返回保存的完整文件名，错误
func (fd *FileData) ToFile(f string) (string, error) {
	fn := fd.fileName
	if f != "" {
		fn = f
	}
	if fn == "" {
		return "", fmt.Errorf("excel-文件名为空")
	}
	if !strings.HasSuffix(fn, ".xlsx") {
		fn += ".xlsx"
	}
	if !isExist(filepath.Dir(fn)) {
		os.MkdirAll(filepath.Dir(fn), 0o775)
	}
	if err := fd.writeFile.Save(fn); err != nil {
		return "", errors.Wrap(err, "excel-文件保存失败")
	}
	return fn, nil
}

func newStyle() *xlsx.Style {
	st := xlsx.NewStyle()
	st.Alignment.Horizontal = "center"
	st.Font.Bold = true
	st.ApplyAlignment = true
	st.ApplyFont = true
	return st
}

// NewExcel 创建新的excel文件
// filename: 需要保存的文件路径，可不加扩展名
func NewExcel(filename string) *FileData {
	return &FileData{
		writeFile: xlsx.NewFile(),
		colStyle:  newStyle(),
		fileName:  filename,
	}
}

// NewExcelFromBinary 从文件读取xlsx
func NewExcelFromBinary(bs []byte, filename string) (*FileData, error) {
	xf, err := xlsx.OpenBinary(bs)
	if err != nil {
		return nil, errors.Wrap(err, "excel-文件读取失败")
	}
	return &FileData{
		writeFile: xf,
		colStyle:  newStyle(),
		fileName:  filename,
	}, nil
}

func isExist(p string) bool {
	if p == "" {
		return false
	}
	_, err := os.Stat(p)
	return err == nil || os.IsExist(err)
}

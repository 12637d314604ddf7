package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成 Excel 文件失败")

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出某日各部门报餐汇总为 Excel (.xlsx)，供厨房打印
//   - 数据与 /lunch/summary 一致（含读时兼容规则），按部门 ID 升序
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportSummary 导出报餐汇总为 Excel
	ExportSummary(ctx context.Context, rawDate string) (*bytes.Buffer, string, error)
}

type exportService struct {
	lunch  LunchService
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(lunch LunchService, logger *zap.Logger) ExportService {
	return &exportService{lunch: lunch, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSummary — 导出报餐汇总为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Summary"
//   - 第 1 行标题，第 2 行表头：部门 | 普通餐 | 素食 | 合计 | 最后更新人 | 最后更新时间
//   - 末行合计
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportSummary(ctx context.Context, rawDate string) (*bytes.Buffer, string, error) {
	summary, err := s.lunch.Summary(ctx, rawDate)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Summary"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	_ = f.DeleteSheet("Sheet1")

	_ = f.SetColWidth(sheetName, "A", "A", 24)
	_ = f.SetColWidth(sheetName, "B", "D", 12)
	_ = f.SetColWidth(sheetName, "E", "F", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	// 标题行
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Lunch registrations %s", summary.Date))
	_ = f.MergeCell(sheetName, "A1", "F1")
	_ = f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"Department", "Regular", "Vegetarian", "Total", "Updated by", "Updated at"}
	for i, h := range headers {
		_ = f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	_ = f.SetCellStyle(sheetName, "A2", "F2", headerStyle)

	// 数据行
	row := 3
	for _, d := range summary.Departments {
		_ = f.SetCellValue(sheetName, cell("A", row), d.DepartmentID)
		_ = f.SetCellValue(sheetName, cell("B", row), d.RegularQuantity)
		_ = f.SetCellValue(sheetName, cell("C", row), d.VegQuantity)
		_ = f.SetCellValue(sheetName, cell("D", row), d.TotalQuantity)
		if d.UpdatedBy != nil {
			_ = f.SetCellValue(sheetName, cell("E", row), *d.UpdatedBy)
		}
		if d.UpdatedAt != nil {
			_ = f.SetCellValue(sheetName, cell("F", row), d.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
		}
		row++
	}

	// 合计行
	_ = f.SetCellValue(sheetName, cell("A", row), "Total")
	_ = f.SetCellValue(sheetName, cell("B", row), summary.TotalRegular)
	_ = f.SetCellValue(sheetName, cell("C", row), summary.TotalVeg)
	_ = f.SetCellValue(sheetName, cell("D", row), summary.TotalQuantity)
	_ = f.SetCellStyle(sheetName, cell("A", row), cell("D", row), totalStyle)

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("lunch-summary-%s.xlsx", summary.Date)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportService_ExportSummary(t *testing.T) {
	env := newTestEnv(at(3, 8, 0))
	ctx := context.Background()

	if _, err := env.svc.Lunch.Set(ctx, setReq("2024-06-03", 10, 2), salesManager); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}
	if _, err := env.svc.Lunch.Set(ctx, setReq("2024-06-03", 4, 1), itManager); err != nil {
		t.Fatalf("Set 失败: %v", err)
	}

	buf, filename, err := env.svc.Export.ExportSummary(ctx, "2024-06-03")
	if err != nil {
		t.Fatalf("ExportSummary 失败: %v", err)
	}
	if filename != "lunch-summary-2024-06-03.xlsx" {
		t.Errorf("文件名错误: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法解析生成的 Excel: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Summary")
	if err != nil {
		t.Fatalf("读取 Sheet 失败: %v", err)
	}
	// 标题 + 表头 + 2 个部门 + 合计
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际=%d: %v", len(rows), rows)
	}
	if rows[2][0] != "IT" || rows[3][0] != "Sales" {
		t.Errorf("部门应按 ID 升序: %v", rows)
	}
	if rows[4][0] != "Total" || rows[4][3] != "17" {
		t.Errorf("合计行错误: %v", rows[4])
	}
}

func TestExportService_ExportSummary_InvalidDate(t *testing.T) {
	env := newTestEnv(at(3, 8, 0))

	_, _, err := env.svc.Export.ExportSummary(context.Background(), "not-a-date")
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

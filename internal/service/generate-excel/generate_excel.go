package generate_excel

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"tender-golang/internal/service/cascade"
	"tender-golang/internal/service/sorting"
	"tender-golang/internal/storage"
)

// Выгрузка позиции в xlsx: строки в отображаемом порядке (работа, за ней
// её материалы, в хвосте непривязанные), стоимости округляются до копеек
// только здесь, на выводе.

type GenerateExcelStorage interface {
	GetPosition(ctx context.Context, id int64) (*storage.Position, error)
	GetItemsByPosition(ctx context.Context, positionID int64) ([]storage.BOQItem, error)
	GetLinksForPosition(ctx context.Context, positionID int64) ([]storage.WorkMaterialLink, error)
	GetActiveProfile(ctx context.Context, tenderID int64) (*storage.MarkupProfile, error)
}

type GenerateExcelService struct {
	storage GenerateExcelStorage
}

func NewGenerateService(storage GenerateExcelStorage) *GenerateExcelService {
	return &GenerateExcelService{storage: storage}
}

func (g *GenerateExcelService) GenerateExcel(ctx context.Context, positionID int64) ([]byte, error) {
	position, err := g.storage.GetPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("fetch position: %w", err)
	}

	items, err := g.storage.GetItemsByPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("fetch items: %w", err)
	}

	links, err := g.storage.GetLinksForPosition(ctx, positionID)
	if err != nil {
		return nil, fmt.Errorf("fetch links: %w", err)
	}

	profile, err := g.storage.GetActiveProfile(ctx, position.TenderID)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}

	ordered := sorting.Sort(items, links)

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Коммерческое предложение"
	f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"E0E0E0"}, Pattern: 1},
		Border: []excelize.Border{{Type: "bottom", Color: "000000", Style: 2}},
	})

	headers := []string{"№", "Вид", "Наименование", "Ед. изм.", "Кол-во", "Расценка",
		"Прямые затраты", "Коммерческая стоимость", "Коэф. наценки", "Работы", "Материалы"}

	for i, name := range headers {
		f.SetCellValue(sheet, cellName(i+1, 1), name)
	}

	lastCol, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheet, "A1", lastCol, headerStyle)

	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 2}) // 0.00

	for rowIdx, item := range ordered {
		rowNum := rowIdx + 2

		res, err := cascade.Calculate(item.Kind, cascade.BaseCost(item), *profile, item.MaterialType)
		if err != nil {
			return nil, fmt.Errorf("строка %d: %w", item.ID, err)
		}

		f.SetCellValue(sheet, cellName(1, rowNum), item.SubNumber)
		f.SetCellValue(sheet, cellName(2, rowNum), kindLabel(item.Kind))
		f.SetCellValue(sheet, cellName(3, rowNum), item.Description)
		f.SetCellValue(sheet, cellName(4, rowNum), item.Unit)
		f.SetCellValue(sheet, cellName(5, rowNum), item.Quantity)
		f.SetCellValue(sheet, cellName(6, rowNum), item.UnitRate)
		f.SetCellValue(sheet, cellName(7, rowNum), cascade.BaseCost(item))
		f.SetCellValue(sheet, cellName(8, rowNum), res.CommercialCost)
		if coef, ok := cascade.MarkupCoefficient(res.CommercialCost, cascade.BaseCost(item)); ok {
			f.SetCellValue(sheet, cellName(9, rowNum), coef)
		}
		f.SetCellValue(sheet, cellName(10, rowNum), res.WorksContribution)
		f.SetCellValue(sheet, cellName(11, rowNum), res.MaterialsContribution)

		f.SetCellStyle(sheet, cellName(6, rowNum), cellName(11, rowNum), moneyStyle)
	}

	// Итоговая строка по позиции
	totals, err := cascade.AggregatePosition(items, *profile)
	if err != nil {
		return nil, fmt.Errorf("итоги позиции: %w", err)
	}

	totalRow := len(ordered) + 2
	f.SetCellValue(sheet, cellName(3, totalRow), "Итого по позиции")
	f.SetCellValue(sheet, cellName(8, totalRow), totals.Total)
	f.SetCellValue(sheet, cellName(10, totalRow), totals.WorksCost)
	f.SetCellValue(sheet, cellName(11, totalRow), totals.MaterialsCost)
	f.SetCellStyle(sheet, cellName(8, totalRow), cellName(11, totalRow), moneyStyle)

	f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
	})

	f.SetColWidth(sheet, "C", "C", 40)
	f.SetColWidth(sheet, "D", "K", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func kindLabel(kind storage.ItemKind) string {
	switch kind {
	case storage.KindWork:
		return "работа"
	case storage.KindSubWork:
		return "суб-работа"
	case storage.KindMaterial:
		return "материал"
	case storage.KindSubMaterial:
		return "суб-материал"
	default:
		return ""
	}
}

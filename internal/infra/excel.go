package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"puntocambio/internal/model"

	"github.com/xuri/excelize/v2"
)

const cierreSheet = "Cierre"

// GenerateCierreXLSX writes the per-currency lines of a close as a spreadsheet
// next to its PDF report and returns the file path.
func GenerateCierreXLSX(c *model.CuadreCaja, puntoNombre, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("xlsx: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, reportName(c, "xlsx"))

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", cierreSheet); err != nil {
		return "", fmt.Errorf("xlsx: rename sheet: %w", err)
	}

	f.SetCellValue(cierreSheet, "A1", "Punto")
	f.SetCellValue(cierreSheet, "B1", puntoNombre)
	f.SetCellValue(cierreSheet, "A2", "Fecha")
	f.SetCellValue(cierreSheet, "B2", c.Fecha.Format("2006-01-02"))

	headers := []string{
		"Moneda", "Saldo apertura", "Ingresos", "Egresos", "Saldo cierre",
		"Billetes", "Monedas", "Conteo físico", "Diferencia físico",
		"Bancos teórico", "Bancos conteo", "Diferencia bancos",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 4)
		f.SetCellValue(cierreSheet, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 4)
		f.SetCellStyle(cierreSheet, "A4", last, style)
	}

	for i, d := range c.Detalles {
		row := i + 5
		valores := []interface{}{
			codigoMoneda(d.Moneda, d.MonedaID.String()),
			d.SaldoApertura.InexactFloat64(), d.IngresosPeriodo.InexactFloat64(), d.EgresosPeriodo.InexactFloat64(),
			d.SaldoCierre.InexactFloat64(), d.ConteoBilletes.InexactFloat64(), d.ConteoMonedas.InexactFloat64(),
			d.ConteoFisico.InexactFloat64(), d.DiferenciaFisico.InexactFloat64(),
			d.BancosTeorico.InexactFloat64(), d.ConteoBancos.InexactFloat64(), d.DiferenciaBancos.InexactFloat64(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(cierreSheet, cell, &valores); err != nil {
			return "", fmt.Errorf("xlsx: write row %d: %w", row, err)
		}
	}

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("xlsx: save: %w", err)
	}
	return filePath, nil
}

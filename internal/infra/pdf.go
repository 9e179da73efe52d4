package infra

// pdf.go: PDF documents rendered with go-pdf/fpdf.
//   - ReciboCambioPDF: thermal-size receipt of a currency exchange, streamed
//     back to the operator.
//   - GenerateCierrePDF: A4 report of a daily close, written to the report
//     storage and attached to the close email.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"puntocambio/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const timeLayout = "02/01/2006  15:04"

// ReciboCambioPDF renders the receipt of an exchange. MonedaOrigen and
// MonedaDestino must be preloaded; a missing one prints its id instead.
func ReciboCambioPDF(c *model.CambioDivisa, puntoNombre string) ([]byte, error) {
	// 80mm roll; height grows with partial payments
	alto := 130.0 + float64(len(c.Abonos))*5
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8
	left := contentW * 0.55
	right := contentW - left

	origen, destino := codigoMoneda(c.MonedaOrigen, c.MonedaOrigenID.String()), codigoMoneda(c.MonedaDestino, c.MonedaDestinoID.String())

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, "Punto Cambio", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, tr(puntoNombre), "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, tr("Comprobante de cambio de divisas"), "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr("Recibo N° "+c.NumeroRecibo), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, c.CreatedAt.Format(timeLayout), "", 1, "L", false, 0, "")
	if c.ClienteNombre != "" {
		pdf.CellFormat(contentW, 4, tr("Cliente: "+c.ClienteNombre+" "+c.ClienteDocumento), "", 1, "L", false, 0, "")
	}
	separador(pdf, pageW)

	// ── Operation ────────────────────────────────────────────────────────────
	fila := func(label, valor string) {
		pdf.CellFormat(left, 5, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(right, 5, tr(valor), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "", 7)
	fila("Operación:", string(c.TipoOperacion))
	fila("Recibido:", c.MontoOrigen.StringFixed(2)+" "+origen)
	fila("  billetes / monedas:", c.DivisasRecibidasBilletes.StringFixed(2)+" / "+c.DivisasRecibidasMonedas.StringFixed(2))
	fila("Tasa billetes:", c.TasaCambioBilletes.String())
	if !c.TasaCambioMonedas.IsZero() {
		fila("Tasa monedas:", c.TasaCambioMonedas.String())
	}
	pdf.SetFont("Helvetica", "B", 9)
	fila("Entregado:", c.MontoDestino.StringFixed(2)+" "+destino)
	pdf.SetFont("Helvetica", "", 7)
	fila("Método:", c.MetodoEntrega)
	if c.TransferenciaBanco != nil {
		ref := *c.TransferenciaBanco
		if c.TransferenciaNumero != nil {
			ref += " #" + *c.TransferenciaNumero
		}
		fila("Banco:", ref)
	}

	// ── Partial payments ─────────────────────────────────────────────────────
	if len(c.Abonos) > 0 {
		separador(pdf, pageW)
		pdf.SetFont("Helvetica", "B", 7)
		pdf.CellFormat(contentW, 5, "Abonos", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		for _, a := range c.Abonos {
			fila(a.CreatedAt.Format(timeLayout), a.Monto.StringFixed(2)+" "+destino)
		}
	}
	if c.SaldoPendiente != nil && c.SaldoPendiente.IsPositive() {
		pdf.SetFont("Helvetica", "B", 8)
		fila("Saldo pendiente:", c.SaldoPendiente.StringFixed(2)+" "+destino)
	}

	separador(pdf, pageW)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, tr("Estado: "+string(c.Estado)), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("Conserve este comprobante"), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render recibo: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateCierrePDF writes the report of a close to storagePath/cierre_{fecha}_{id}.pdf
// and returns the file path. Detalles.Moneda must be preloaded.
func GenerateCierrePDF(c *model.CuadreCaja, puntoNombre, storagePath string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	filePath := filepath.Join(storagePath, reportName(c, "pdf"))

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("Cuadre de caja - "+puntoNombre), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Fecha: %s   Cerrado: %s", c.Fecha.Format("02/01/2006"), c.FechaCierre.Format(timeLayout))), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Cambios: %d   Transferencias entrada: %d   salida: %d",
		c.TotalCambios, c.TotalTransferenciasEntrada, c.TotalTransferenciasSalida)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	headers := []string{"Moneda", "Apertura", "Ingresos", "Egresos", "Cierre", "Conteo", "Dif. físico", "Bancos teórico", "Bancos conteo", "Dif. bancos"}
	width := 277.0 / float64(len(headers))
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	for _, h := range headers {
		pdf.CellFormat(width, 6, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 8)
	for _, d := range c.Detalles {
		celdas := []string{codigoMoneda(d.Moneda, d.MonedaID.String())}
		for _, v := range []decimal.Decimal{
			d.SaldoApertura, d.IngresosPeriodo, d.EgresosPeriodo, d.SaldoCierre, d.ConteoFisico,
			d.DiferenciaFisico, d.BancosTeorico, d.ConteoBancos, d.DiferenciaBancos,
		} {
			celdas = append(celdas, v.StringFixed(2))
		}
		for i, v := range celdas {
			align := "R"
			if i == 0 {
				align = "L"
			}
			pdf.CellFormat(width, 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if c.Observaciones != nil && *c.Observaciones != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(0, 5, tr("Observaciones: "+*c.Observaciones), "", "L", false)
	}

	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func separador(pdf *fpdf.Fpdf, pageW float64) {
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)
}

func codigoMoneda(m *model.Moneda, fallback string) string {
	if m == nil {
		return fallback
	}
	return m.Codigo
}

func reportName(c *model.CuadreCaja, ext string) string {
	return fmt.Sprintf("cierre_%s_%s.%s", c.Fecha.Format("2006-01-02"), c.ID.String()[:8], ext)
}

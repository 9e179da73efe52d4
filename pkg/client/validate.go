package client

import (
	"fmt"
	"reflect"
	"strings"

	"puntocambio/internal/dto"
	"puntocambio/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// newValidator checks outgoing requests with their dto tags and incoming
// responses with the struct-level rules below.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	v.RegisterStructValidation(validarLogin, dto.LoginResponse{})
	v.RegisterStructValidation(validarUsuario, dto.UsuarioResponse{})
	v.RegisterStructValidation(validarJornada, dto.JornadaResponse{})
	v.RegisterStructValidation(validarCambio, dto.CambioResponse{})
	v.RegisterStructValidation(validarTransferencia, dto.TransferenciaResponse{})
	v.RegisterStructValidation(validarResumen, dto.ResumenCuadreResponse{})
	v.RegisterStructValidation(validarCuadre, dto.CuadreResponse{})
	return v
}

// check validates a decoded response. Slices are checked element by element;
// a nil pointer (data: null) is accepted.
func (c *Client) check(out any) error {
	rv := reflect.ValueOf(out)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Struct:
		if err := c.validate.Struct(rv.Interface()); err != nil {
			return fmt.Errorf("%w: %v", ErrRespuestaInvalida, err)
		}
	case reflect.Slice:
		for i := 0; i < rv.Len(); i++ {
			if err := c.check(rv.Index(i).Addr().Interface()); err != nil {
				return err
			}
		}
	}
	return nil
}

// validarRequest runs the dto tags before anything is sent.
func (c *Client) validarRequest(req any) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return &Error{Status: 422, Message: "Error de validacion", Fields: fields}
}

// ── Response rules ───────────────────────────────────────────────────────────

func esUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

func validarLogin(sl validator.StructLevel) {
	r := sl.Current().Interface().(dto.LoginResponse)
	if r.AccessToken == "" {
		sl.ReportError(r.AccessToken, "access_token", "AccessToken", "required", "")
	}
}

func validarUsuario(sl validator.StructLevel) {
	u := sl.Current().Interface().(dto.UsuarioResponse)
	if !esUUID(u.ID) {
		sl.ReportError(u.ID, "id", "ID", "uuid", "")
	}
	switch u.Rol {
	case model.RolOperador, model.RolConcesion, model.RolAdmin, model.RolSuperUsuario:
	default:
		sl.ReportError(u.Rol, "rol", "Rol", "oneof", "")
	}
}

func validarJornada(sl validator.StructLevel) {
	j := sl.Current().Interface().(dto.JornadaResponse)
	if !esUUID(j.ID) {
		sl.ReportError(j.ID, "id", "ID", "uuid", "")
	}
	if !esUUID(j.PuntoAtencionID) {
		sl.ReportError(j.PuntoAtencionID, "punto_atencion_id", "PuntoAtencionID", "uuid", "")
	}
}

func validarCambio(sl validator.StructLevel) {
	c := sl.Current().Interface().(dto.CambioResponse)
	if !esUUID(c.ID) {
		sl.ReportError(c.ID, "id", "ID", "uuid", "")
	}
	switch model.EstadoCambio(c.Estado) {
	case model.CambioCompletado, model.CambioCancelado:
	case model.CambioPendiente:
		if c.SaldoPendiente == nil || c.SaldoPendiente.IsNegative() {
			sl.ReportError(c.SaldoPendiente, "saldo_pendiente", "SaldoPendiente", "required", "")
		}
	default:
		sl.ReportError(c.Estado, "estado", "Estado", "oneof", "")
	}
	if c.MontoDestino.IsNegative() {
		sl.ReportError(c.MontoDestino, "monto_destino", "MontoDestino", "min", "0")
	}
}

func validarTransferencia(sl validator.StructLevel) {
	t := sl.Current().Interface().(dto.TransferenciaResponse)
	if !esUUID(t.ID) {
		sl.ReportError(t.ID, "id", "ID", "uuid", "")
	}
	switch model.EstadoTransferencia(t.Estado) {
	case model.TransferenciaPendiente, model.TransferenciaAprobado, model.TransferenciaRechazado,
		model.TransferenciaEnTransito, model.TransferenciaRecibido:
	default:
		sl.ReportError(t.Estado, "estado", "Estado", "oneof", "")
	}
	if !t.Monto.IsPositive() {
		sl.ReportError(t.Monto, "monto", "Monto", "gt", "0")
	}
}

func validarResumen(sl validator.StructLevel) {
	r := sl.Current().Interface().(dto.ResumenCuadreResponse)
	for _, d := range r.Detalles {
		if !esUUID(d.MonedaID) {
			sl.ReportError(d.MonedaID, "moneda_id", "MonedaID", "uuid", "")
		}
	}
}

func validarCuadre(sl validator.StructLevel) {
	c := sl.Current().Interface().(dto.CuadreResponse)
	if !esUUID(c.ID) {
		sl.ReportError(c.ID, "id", "ID", "uuid", "")
	}
}

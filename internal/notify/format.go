package notify

import (
	"ofertabot/internal/offers"
	"ofertabot/pkg/htmlfmt"
)

// FormatOffer renders one offer as a Telegram HTML block. Field order is
// fixed; blank optional fields are omitted instead of rendered empty.
func FormatOffer(o offers.Offer, isNew bool) string {
	header := "📌 Oferta ya publicada"
	if isNew {
		header = "🆕 Nueva oferta de cargo"
	}

	parts := []htmlfmt.H{htmlfmt.B(header)}

	field := func(label, value string) {
		if value == "" {
			return
		}
		parts = append(parts, htmlfmt.Join(" ", htmlfmt.B(label+":"), htmlfmt.Esc(value)))
	}

	field("Cargo", o.Title)
	field("Distrito", o.Zone)
	field("Nivel/Modalidad", o.LevelOrModality)
	field("Curso/División", o.CourseDivision)
	field("Escuela", o.School)
	field("Domicilio de desempeño", o.ServiceAddress)
	field("Estado", o.Status)
	field("Turno", o.Shift)
	field("Categoría de suplencia", o.SubstituteCategory)
	field("Tipo de cargo", o.PositionType)
	if o.Schedule != "" && o.Schedule != offers.ScheduleUnspecified {
		parts = append(parts, htmlfmt.Join("\n", htmlfmt.B("Horario:"), htmlfmt.Esc(o.Schedule)))
	}
	field("Cierre de oferta", o.ClosingDate)
	field("Inicio", o.StartDate)
	field("Suplencia hasta", o.SubstituteUntilDate)
	field("Toma de posesión", o.PossessionDate)
	field("Observaciones", o.Remarks)

	if o.Link != "" {
		parts = append(parts, htmlfmt.Link("Ver listado completo", o.Link))
	}

	return htmlfmt.Join("\n", parts...).String()
}

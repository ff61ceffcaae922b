package service

import (
	"sort"
	"strings"

	"tripdesk/internal/modules/conversation"
	"tripdesk/internal/types"
)

// Apology is the only failure text a user ever sees.
const Apology = "Lo siento, actualmente no puedo procesar tu solicitud."

// PolicyPreamble opens every prompt.
const PolicyPreamble = `Política de Viajes Creai:
Reservaciones 7 días antes, info completa obligatoria.
Vuelos: Económica, carry-on incluido, asiento seleccionable según política, premier solo con autorización especial.
Hospedaje: Límite por seniority y región. Hoteles seguros y cerca del venue. Habitación compartida solo si el usuario acepta.
Viáticos: Por país, justificación o anticipo según política.
Autorizaciones: Finanzas autoriza, Presidencia para excepciones.
No cubierto: fechas fuera del evento, room service, minibar, spa, gimnasio, transporte ajeno, etc.
Casos especiales: Solo con autorización de Presidencia.

Eres el asistente de viajes corporativos. Responde en español, breve y cordial.
Usa los datos del viaje que ya conoces y no los vuelvas a preguntar.
Si hay datos faltantes, pide el primero de la lista (puedes agrupar origen y destino).`

// promptHistoryWindow is the number of history entries (5 turns) shown to the responder.
const promptHistoryWindow = 10

// BuildPrompt assembles, in order: preamble, trip snapshot, traveller profile,
// missing slots, recent history and the current message. prior must not
// include the current message.
func BuildPrompt(state conversation.State, profile conversation.Profile, prior conversation.History, message string) string {
	var b strings.Builder
	b.WriteString(PolicyPreamble)

	b.WriteString("\n\nDatos del viaje:\n")
	fields := state.Fields()
	if len(fields) == 0 {
		b.WriteString("- (sin datos)\n")
	}
	for _, f := range fields {
		b.WriteString("- " + f.Slot.Label() + ": " + displayValue(f) + "\n")
	}

	if len(profile) > 0 {
		b.WriteString("\nPerfil del viajero:\n")
		keys := make([]string, 0, len(profile))
		for k := range profile {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString("- " + k + ": " + profile[k] + "\n")
		}
	}

	b.WriteString("\nDatos faltantes: ")
	missing := state.MissingRequiredSlots()
	if len(missing) == 0 {
		b.WriteString("ninguno")
	}
	for i, slot := range missing {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(slot.Label())
	}
	b.WriteString("\n")

	if recent := prior.Truncate(promptHistoryWindow); len(recent) > 0 {
		b.WriteString("\nConversación reciente:\n")
		b.WriteString(recent.Transcript())
	}

	b.WriteString("\nUsuario: " + message + "\nBot:")
	return b.String()
}

func displayValue(f conversation.Field) string {
	switch f.Slot {
	case conversation.SlotPassport, conversation.SlotVisa, conversation.SlotShareRoom:
		if types.ParseTristate(f.Value) == types.Yes {
			return "sí"
		}
		return "no"
	}
	return f.Value
}

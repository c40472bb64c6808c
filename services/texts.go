package services

import "fmt"

// User-facing reply texts. Wording matters to downstream assertions, so these
// stay centralized instead of scattered through the dispatcher.
const (
	TechnicalIssueMsg = "Lo siento, estoy experimentando dificultades técnicas. " +
		"Por favor, contacta con soporte directamente."

	StoreStatusMissingMsg = "Para poder verificar el estado del comercio necesito dos datos importantes:\n" +
		"1️⃣ El ID del comercio (p.ej.: 100005336)\n" +
		"2️⃣ El nombre de la empresa (p.ej.: soprole)\n\n" +
		"¿Podrías proporcionarme esta información? 🤔"

	StoreNotFoundMsg = "No pude encontrar información sobre ese comercio. " +
		"¿Podrías verificar si el ID y la empresa son correctos? 🔍"

	HandoffAckMsg = "Voy a derivar tu consulta a una persona de nuestro equipo de soporte. " +
		"Te contactaremos en breve. 🙋"
)

// StoreActiveMsg confirms an active commerce, echoing the id and company.
func StoreActiveMsg(commerceID, companyName string) string {
	return fmt.Sprintf("✅ ¡Buenas noticias! El comercio %s de %s está activo y funcionando correctamente.",
		commerceID, companyName)
}

// StoreInactiveMsg reports a deactivated commerce, echoing the id and company.
func StoreInactiveMsg(commerceID, companyName string) string {
	return fmt.Sprintf("❌ El comercio %s de %s está desactivado actualmente.",
		commerceID, companyName)
}

// GreetingMessages are the canned replies for the greeting short-circuit.
var GreetingMessages = []string{
	"¡Hola! 👋 ¿En qué puedo ayudarte hoy?",
	"¡Hey! 🎉 ¿Cómo puedo ayudarte?",
	"¡Bienvenido/a! 👋 ¿En qué puedo asistirte?",
}

// BasicGreetings are matched against normalized inbound text.
var BasicGreetings = []string{
	"hola", "hello", "hi", "buenos dias", "buenas tardes", "buenas noches",
}

package conversation

import "fmt"

// Fixed user-facing texts.
const (
	PromptWelcome = "Добро пожаловать! Я помогу отправить сообщение на электронную почту.\n" +
		"Пожалуйста, введите адрес электронной почты получателя:"
	PromptBody         = "Отлично! Теперь введите текст сообщения:"
	PromptInvalidEmail = "Пожалуйста, введите корректный адрес электронной почты:"
	PromptEmptyBody    = "Сообщение не может быть пустым. Введите текст сообщения:"
	PromptYesNo        = "Пожалуйста, ответьте 'Да' или 'Нет':"
	PromptRestart      = "Ок, вы можете заново ввести email или текст сообщения. Введите адрес электронной почты:"
	PromptDelivered    = "Сообщение успешно отправлено!"
)

// SummaryPrompt echoes the draft back and asks for confirmation.
func SummaryPrompt(recipient, body string) string {
	return fmt.Sprintf("Вы ввели следующее сообщение:\n\n%s\n\nПолучатель: %s\nОтправить сообщение? (Да/Нет)", body, recipient)
}

// FailedPrompt reports a delivery failure.
func FailedPrompt(reason string) string {
	return "Произошла ошибка при отправке: " + reason
}

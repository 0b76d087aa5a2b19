package flow

import "fmt"

// User-facing texts, kept in Russian as in the original bot.
const (
	msgNeedText = "Пожалуйста, введи текст (не фото/стикеры)."

	msgAskTime = "Отлично! А сколько у тебя свободного времени на прогулку? Напиши число в часах (например: 2.5 или 3)."

	msgInvalidTime = "Пожалуйста, введи положительное число (например: 1.5 или 2)."

	msgAskLocation = "Теперь отправь своё текущее местоположение — нажми кнопку ниже или напиши координаты в формате «56.326 44.007»."

	msgInvalidLocation = "Пожалуйста, отправь геопозицию через кнопку или напиши координаты в формате «56.326 44.007»."

	msgPleaseWait = "Я ещё готовлю твой маршрут, подожди немного... ⏳"

	msgIdle = "Напиши /start, чтобы я подобрал для тебя прогулку."

	msgCancelled = "Опрос отменён. Напиши /start, чтобы начать заново."

	msgBusy = "Я ещё занят твоим предыдущим маршрутом. Напиши /start чуть позже."

	msgRoutePrefix = "Вот твой маршрут:\n\n"

	msgGenerationFailed = "Не удалось составить маршрут. Попробуйте позже.\nНапиши /start, чтобы попробовать ещё раз."
)

// LocationButtonText labels the reply-keyboard button requesting the
// user's location.
const LocationButtonText = "Отправить моё местоположение 📍"

func msgGreeting(firstName string) string {
	name := firstName
	if name == "" {
		name = "путешественник"
	}
	return fmt.Sprintf(
		"Привет, %s! 👋\n"+
			"Я помогу подобрать тебе идеальную прогулку.\n\n"+
			"Сначала расскажи, что тебе интересно? Например: стрит-арт, история, кофейни, панорамы и т.д.\n"+
			"Можешь перечислить через запятую.", name)
}

func msgSummary(interests string, hours, lat, lon float64) string {
	return fmt.Sprintf(
		"Спасибо! 🎉\n"+
			"• Интересы: %s\n"+
			"• Время: %g ч\n"+
			"• Местоположение: %.5f, %.5f\n\n"+
			"Готовлю для тебя персональный маршрут...", interests, hours, lat, lon)
}

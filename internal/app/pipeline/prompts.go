package pipeline

import (
	"fmt"

	"github.com/PabloGalante/chatplanner/internal/domain"
)

// Output budgets per oracle call.
const (
	classifyMaxTokens    = 10
	eventTitleMaxTokens  = 10
	taskTitleMaxTokens   = 15
	descriptionMaxTokens = 40
	timeMaxTokens        = 25
)

// extraction calls are not retried, so they run at the lowest temperature
const extractTemperature float32 = 0.2

const referenceTimeLayout = "2006-01-02 15:04:05"

func classifyPrompt(q domain.Query) string {
	return fmt.Sprintf(`Ты обрабатываешь сообщения от пользователя чат-бота с интеграцией календаря и todo-листа.
Пользователь отправил сообщение «%s». Определи, что хочет пользователь: создать событие в календаре,
создать задачу в todo-листе, или это определить нельзя.
Для мероприятия (например, контрольная, встреча или концерт) напиши 'event',
для задачи (например, купить продукты, закрыть дедлайн) напиши 'task', иначе напиши 'else'.
Напиши только тип!`, q.Content)
}

func eventTitlePrompt(q domain.Query) string {
	return fmt.Sprintf(`Пользователь чат-бота с интеграцией календаря отправил сообщение «%s».
Он хочет поставить это событие в календарь. Выпиши название события максимально полно.
Например, сообщение "поставь на завтра встречу с олегом в 7" превращается в "Встреча с Олегом".
Напиши только название события!`, q.Content)
}

func eventDescriptionPrompt(q domain.Query) string {
	return fmt.Sprintf(`Пользователь чат-бота с интеграцией календаря отправил сообщение «%s».
Он хочет поставить это событие в календарь. Выпиши описание этого события максимально полно.
Напиши только описание события!`, q.Content)
}

func taskTitlePrompt(q domain.Query) string {
	return fmt.Sprintf(`Пользователь чат-бота с интеграцией todo-листа отправил сообщение «%s».
Он хочет добавить эту задачу в todo-лист. Выпиши формулировку задачи максимально полно.
Например, сообщение "мне нужно купить продукты завтра" превращается в "Купить продукты".
Напиши только формулировку задачи! Не упоминай время и день!`, q.Content)
}

func timeFromPrompt(q domain.Query) string {
	return fmt.Sprintf(`Преобразуй запрос «%s» в формат '[<дата>; <время>]'.
Учитывай, что текущее время - это %s. Если время не указано, напиши '[<дата>; -]'.
Если дата не указана, напиши '[]'.`, q.Content, q.CurrentTime.Format(referenceTimeLayout))
}

func timeToPrompt(q domain.Query) string {
	return fmt.Sprintf(`Преобразуй запрос «%s» в формат '[<дата конца события>; <время конца события>]'.
Учитывай, что текущее время - это %s. Если конец события не указан, напиши '[]'.`,
		q.Content, q.CurrentTime.Format(referenceTimeLayout))
}

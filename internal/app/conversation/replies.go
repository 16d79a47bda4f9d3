package conversation

// User-facing texts.
const (
	replyGreeting          = "Привет! Я помогу записывать события в календарь и задачи в todo-лист.\nПришли id своего Google-календаря."
	replyAskCalendarID     = "Пришли id своего Google-календаря."
	replyBadCalendarID     = "Не получилось открыть календарь с таким id. Проверь, что календарь расшарен для бота, и пришли id ещё раз."
	replyAskTaskToken      = "Календарь подключён. Теперь пришли токен сервиса задач."
	replyBadTaskToken      = "Токен не подошёл. Пришли его ещё раз."
	replyValidationTimeout = "Сервис не ответил вовремя. Пришли значение ещё раз."
	replyRegistered        = "Готово! Напиши, что запланировать, или выбери пункт меню."
	replyAlreadyRegistered = "Ты уже зарегистрирован. Напиши, что запланировать."
	replyMenu              = "Что создать?"
	replyAskEventText      = "Опиши событие: что, когда и до скольки."
	replyAskTaskText       = "Опиши задачу и, если нужно, срок."
	replyTooShort          = "Слишком короткое сообщение, опиши подробнее."
	replyNotUnderstood     = "Не удалось понять запрос. Попробуй переформулировать."
	replyCancelled         = "Отменено."
	replyUnregistered      = "Данные удалены. Чтобы начать заново, отправь /start."
	replyTryLater          = "Что-то пошло не так. Попробуй ещё раз позже."

	replyEventCreated = "Событие «%s» создано."
	replyTaskCreated  = "Задача «%s» добавлена."
	replyEventFailed  = "Не удалось создать событие: %s"
	replyTaskFailed   = "Не удалось добавить задачу: %s"
)

// MenuItems are the choices offered in the Idle state.
var MenuItems = []string{"Событие", "Задача"}

var (
	eventMenuWords = map[string]bool{"event": true, "/event": true, "событие": true}
	taskMenuWords  = map[string]bool{"task": true, "/task": true, "задача": true}
)

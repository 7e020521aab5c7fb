package messages

// Icons used across messages
const (
	IconSuccess   = "✅"
	IconError     = "❌"
	IconTimeout   = "⏱️"
	IconSearch    = "🔍"
	IconVideo     = "🎬"
	IconMusic     = "🎵"
	IconHourglass = "⏳"
	IconUpload    = "📤"
	IconStats     = "📊"
	IconHelp      = "📖"
)

const helpEN = IconHelp + " How to use:\n\n" +
	"1️⃣ Send a YouTube link\n" +
	"   Supported forms:\n" +
	"   • https://www.youtube.com/watch?v=...\n" +
	"   • https://youtu.be/...\n\n" +
	"2️⃣ Choose a format:\n" +
	"   • " + IconVideo + " MP4 - full video\n" +
	"   • " + IconMusic + " MP3 - audio only\n\n" +
	"3️⃣ Wait " + IconHourglass + " while the file is downloaded\n\n" +
	"4️⃣ Receive the file " + IconSuccess + "\n\n" +
	IconTimeout + " Waiting time depends on the video size\n" +
	IconStats + " Maximum file size: %d MB"

const helpRU = IconHelp + " Инструкция по использованию:\n\n" +
	"1️⃣ Отправьте ссылку на YouTube видео\n" +
	"   Примеры форматов:\n" +
	"   • https://www.youtube.com/watch?v=...\n" +
	"   • https://youtu.be/...\n\n" +
	"2️⃣ Выберите формат скачивания:\n" +
	"   • " + IconVideo + " MP4 - полное видео\n" +
	"   • " + IconMusic + " MP3 - только аудио\n\n" +
	"3️⃣ Ожидайте " + IconHourglass + " пока бот скачает файл\n\n" +
	"4️⃣ Получите готовый файл " + IconSuccess + "\n\n" +
	IconTimeout + " Время ожидания зависит от размера видео\n" +
	IconStats + " Максимальный размер файла: %d МБ"

// initializeTexts initializes all text translations
func (c *Catalog) initializeTexts() {
	// English texts
	c.texts[LangEnglish] = map[string]string{
		KeyWelcome: "🎉 Welcome!\n\n" +
			"I can download YouTube videos and music.\n\n" +
			"📝 Just send me a link:\n" +
			"• " + IconVideo + " MP4 - download video\n" +
			"• " + IconMusic + " MP3 - download audio only\n\n" +
			"⚠️ Files up to %d MB can be delivered\n" +
			"🔒 Files are deleted right after delivery\n\n" +
			"👇 Send a YouTube link to begin",
		KeyHelp:            helpEN,
		KeyButtonHelp:      IconHelp + " Instructions",
		KeyButtonVideo:     IconVideo + " MP4 (Video)",
		KeyButtonAudio:     IconMusic + " MP3 (Audio)",
		KeyBadLink:         IconError + " Invalid link!\n\nPlease send a valid YouTube link:\n• https://www.youtube.com/watch?v=...\n• https://youtu.be/...",
		KeyChecking:        IconSearch + " Checking the video...",
		KeyProbeNotFound:   IconError + " Could not get video information.\nCheck the link and try again.",
		KeyProbeTimeout:    IconTimeout + " Timed out.\nTry another link.",
		KeyFormatPrompt:    "📹 Video found!\n\n📝 Title: %s\n" + IconTimeout + " Duration: %d min\n\nChoose a format:",
		KeyDownloading:     IconHourglass + " Downloading the file...",
		KeyUploading:       IconUpload + " Sending the file...",
		KeyCaption:         IconSuccess + " Done!\n\n📦 Format: %s\n" + IconStats + " Size: %.1f MB\n📄 File: %s",
		KeyFormatNameVideo: "MP4 video",
		KeyFormatNameAudio: "MP3 audio",
		KeyFetchFailed:     IconError + " Download failed.\nPlease try again.",
		KeyFetchTimeout:    IconTimeout + " Timed out.\nThe video is too large or the connection is slow.",
		KeyNoOutput:        IconError + " File not found after download.\nPlease try again.",
		KeyOversize:        IconError + " File is too large: %.1f MB\nMaximum size: %.0f MB",
		KeyInternalError:   IconError + " Something went wrong while processing the request.\nPlease try again.",
		KeyStaleChoice:     IconError + " Error: the link was lost. Please send it again.",
		KeyNotUnderstood:   IconError + " Command not recognized.\n\nSend a YouTube link or use:\n/start - start over\n/help - instructions",
		KeyBusy:            IconHourglass + " Your previous request is still running. Please wait for it to finish or send /start to cancel it.",
		KeyRateLimited:     IconError + " Download limit exceeded: %d per hour. Please try again later.",
		KeyStatsEmpty:      "You have no downloads yet",
		KeyStatsUser: IconStats + " Your statistics:\n\n" +
			"📥 Total downloads: %d\n" +
			"📦 Total size: %.1f MB\n" +
			"⭐ Favorite format: %s\n" +
			"🕐 Last download: %s",
		KeyStatsUnknownFav: "not determined",
		KeyStatsAdmin: IconStats + " Global statistics:\n\n" +
			"👥 Users: %d\n" +
			"📥 Total downloads: %d\n" +
			"📦 Total size: %.1f MB",
		KeyAccessDenied:     IconError + " Access denied",
		KeyStatsUnavailable: IconError + " Statistics are unavailable right now.",
	}

	// Russian texts
	c.texts[LangRussian] = map[string]string{
		KeyWelcome: "🎉 Добро пожаловать!\n\n" +
			"Я могу скачивать видео и музыку с YouTube.\n\n" +
			"📝 Просто отправьте ссылку:\n" +
			"• " + IconVideo + " MP4 - скачать видео\n" +
			"• " + IconMusic + " MP3 - скачать только музыку\n\n" +
			"⚠️ Можно получить файлы до %d МБ\n" +
			"🔒 Файлы удаляются сразу после отправки\n\n" +
			"👇 Отправьте ссылку на YouTube, чтобы начать",
		KeyHelp:            helpRU,
		KeyButtonHelp:      IconHelp + " Инструкция",
		KeyButtonVideo:     IconVideo + " MP4 (Видео)",
		KeyButtonAudio:     IconMusic + " MP3 (Аудио)",
		KeyBadLink:         IconError + " Некорректная ссылка!\n\nПожалуйста, отправьте правильную ссылку YouTube:\n• https://www.youtube.com/watch?v=...\n• https://youtu.be/...",
		KeyChecking:        IconSearch + " Проверяю видео...",
		KeyProbeNotFound:   IconError + " Не удалось получить информацию о видео.\nПроверьте ссылку и попробуйте еще раз.",
		KeyProbeTimeout:    IconTimeout + " Превышено время ожидания.\nПопробуйте другую ссылку.",
		KeyFormatPrompt:    "📹 Видео найдено!\n\n📝 Название: %s\n" + IconTimeout + " Длительность: %d мин\n\nВыберите формат скачивания:",
		KeyDownloading:     IconHourglass + " Загрузка файла...",
		KeyUploading:       IconUpload + " Отправляю файл...",
		KeyCaption:         IconSuccess + " Готово!\n\n📦 Формат: %s\n" + IconStats + " Размер: %.1f МБ\n📄 Файл: %s",
		KeyFormatNameVideo: "MP4 видео",
		KeyFormatNameAudio: "MP3 аудио",
		KeyFetchFailed:     IconError + " Ошибка при скачивании файла.\nПопробуйте еще раз.",
		KeyFetchTimeout:    IconTimeout + " Превышено время ожидания.\nВидео слишком большое или подключение медленное.",
		KeyNoOutput:        IconError + " Файл не найден после скачивания.\nПопробуйте еще раз.",
		KeyOversize:        IconError + " Файл слишком большой: %.1f МБ\nМаксимальный размер: %.0f МБ",
		KeyInternalError:   IconError + " Ошибка при обработке запроса.\nПопробуйте еще раз.",
		KeyStaleChoice:     IconError + " Ошибка: ссылка потеряна. Отправьте ее еще раз.",
		KeyNotUnderstood:   IconError + " Команда не распознана.\n\nОтправьте ссылку YouTube или используйте:\n/start - начать заново\n/help - инструкция",
		KeyBusy:            IconHourglass + " Предыдущий запрос еще выполняется. Дождитесь его завершения или отправьте /start, чтобы отменить.",
		KeyRateLimited:     IconError + " Превышен лимит загрузок: %d в час. Попробуйте позже.",
		KeyStatsEmpty:      "У вас еще нет загрузок",
		KeyStatsUser: IconStats + " Ваша статистика:\n\n" +
			"📥 Всего загрузок: %d\n" +
			"📦 Общий размер: %.1f МБ\n" +
			"⭐ Любимый формат: %s\n" +
			"🕐 Последняя загрузка: %s",
		KeyStatsUnknownFav: "не определен",
		KeyStatsAdmin: IconStats + " Глобальная статистика:\n\n" +
			"👥 Пользователей: %d\n" +
			"📥 Всего загрузок: %d\n" +
			"📦 Общий размер: %.1f МБ",
		KeyAccessDenied:     IconError + " У вас нет доступа",
		KeyStatsUnavailable: IconError + " Статистика сейчас недоступна.",
	}
}

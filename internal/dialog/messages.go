package dialog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Messages is the bot's copy. Fields holding format verbs are documented
// next to them.
type Messages struct {
	MainMenu    string `yaml:"main_menu"`
	MenuSearch  string `yaml:"menu_search"`
	MenuReview  string `yaml:"menu_review"`
	MenuSupport string `yaml:"menu_support"`
	Support     string `yaml:"support"` // %s: support contact

	SearchPrompt      string `yaml:"search_prompt"`
	ReviewPrompt      string `yaml:"review_prompt"`
	InvalidIdentifier string `yaml:"invalid_identifier"`

	RatingPrompt       string `yaml:"rating_prompt"`
	RatingButton       string `yaml:"rating_button"`        // %d: stars
	RatingChosen       string `yaml:"rating_chosen"`        // %d: stars
	ConfirmNoComment   string `yaml:"confirm_no_comment"`   // %d: stars
	ConfirmWithComment string `yaml:"confirm_with_comment"` // %d: stars, %s: comment
	SkipButton         string `yaml:"skip_button"`
	ConfirmButton      string `yaml:"confirm_button"`
	CancelButton       string `yaml:"cancel_button"`

	Saved      string `yaml:"saved"`
	Cooldown   string `yaml:"cooldown"`
	Cancelled  string `yaml:"cancelled"`
	SaveFailed string `yaml:"save_failed"`

	NotFound       string `yaml:"not_found"`
	Stats          string `yaml:"stats"` // %.1f: average, %d: total
	ExcerptsHeader string `yaml:"excerpts_header"`
	Excerpt        string `yaml:"excerpt"` // %s: comment
	LookupFailed   string `yaml:"lookup_failed"`

	StartOver      string `yaml:"start_over"`
	SomethingWrong string `yaml:"something_wrong"`
}

// DefaultMessages returns the built-in copy.
func DefaultMessages() Messages {
	return Messages{
		MainMenu:    "Привіт! Раді бачити вас в нашому боті.\nЩо вас цікавить?",
		MenuSearch:  "Знайти інформацію🔎",
		MenuReview:  "Залишити відгук⭐",
		MenuSupport: "Підтримка⚙",
		Support:     "Звʼяжіться з підтримкою: %s",

		SearchPrompt:      "Введіть номер авто (Великими, англійськими літерами, наприклад, AB1234CD) або @нікнейм користувача чи 4 цифри, щоб переглянути відгуки.",
		ReviewPrompt:      "Щоб залишити відгук, введіть номер авто (Великими, англійськими літерами, наприклад AB1234CD) або @нікнейм користувача чи 4 цифри.",
		InvalidIdentifier: "Неправильний формат! Введіть номер авто (наприклад, AB1234CD) або @нікнейм користувача чи 4 цифри.",

		RatingPrompt:       "Оцініть підсадку від 1 до 5⭐️\n\nНатисніть на одну із зірочок нижче✨",
		RatingButton:       "%d⭐️",
		RatingChosen:       "Ви поставили %d⭐️\n\nХочете залишити текстовий коментар? Введіть його або натисніть “Пропустити”.",
		ConfirmNoComment:   "Підтверджуєте надсилання %d⭐️ без текстового коментаря?",
		ConfirmWithComment: "Підтверджуєте надсилання %d⭐️ з таким коментарем?\n\n«%s»",
		SkipButton:         "Пропустити",
		ConfirmButton:      "Так, підтверджую",
		CancelButton:       "Скасувати",

		Saved:      "✅ Ваш відгук збережено! Дякуємо за внесок.",
		Cooldown:   "Ви можете залишати відгуки не частіше ніж раз на 4 години.",
		Cancelled:  "Надсилання відгуку скасовано.",
		SaveFailed: "Не вдалося зберегти відгук. Спробуйте підтвердити ще раз пізніше.",

		NotFound:       "Відгуків не знайдено 🙅‍♂️",
		Stats:          "Статистика💡\n\n• Рейтинг: %.1f⭐️\n• Всього відгуків: %d 📍\n\n",
		ExcerptsHeader: "Ось, які відгуки ми знайшли:\n\n",
		Excerpt:        "📍 «%s»\n",
		LookupFailed:   "Сталася помилка при отриманні відгуків. Спробуйте пізніше.",

		StartOver:      "Не вдалося знайти дані для підтвердження. Почніть спочатку.",
		SomethingWrong: "Щось пішло не так. Спробуйте спочатку.",
	}
}

// LoadMessages returns the default copy overridden by the YAML file at path.
// Keys missing from the file keep their default. An empty path yields the
// defaults.
func LoadMessages(path string) (Messages, error) {
	msgs := DefaultMessages()
	if path == "" {
		return msgs, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return msgs, fmt.Errorf("read messages file: %w", err)
	}
	if err := yaml.Unmarshal(data, &msgs); err != nil {
		return DefaultMessages(), fmt.Errorf("parse messages file: %w", err)
	}
	return msgs, nil
}

func (m Messages) menuRows() [][]string {
	return [][]string{{m.MenuSearch}, {m.MenuReview}, {m.MenuSupport}}
}

package kitchen

// NoticeKind tells the presentation layer how to surface a notice.
type NoticeKind string

const (
	// NoticeValidation reports rejected user input; shown inline.
	NoticeValidation NoticeKind = "validation"
	// NoticeInline reports a failed background request; shown inline.
	NoticeInline NoticeKind = "inline"
	// NoticeModal blocks the page until dismissed.
	NoticeModal NoticeKind = "modal"
)

// NoticeCode identifies the generic message shown to the user. Every
// provider failure collapses to one of these regardless of cause.
type NoticeCode string

const (
	CodeBlankIngredients NoticeCode = "blank_ingredients"
	CodeRecipeFailed     NoticeCode = "recipe_failed"
	CodeImageFailed      NoticeCode = "image_failed"
	CodeEditFailed       NoticeCode = "edit_failed"
	CodeSaveFailed       NoticeCode = "save_failed"
)

// Notice is the single user-facing error channel.
type Notice struct {
	Kind NoticeKind `json:"kind"`
	Code NoticeCode `json:"code"`
}

// Modal reports whether the notice must be shown as a blocking dialog.
func (n Notice) Modal() bool {
	return n.Kind == NoticeModal
}

// Message returns the localized text for the notice.
func (n Notice) Message(locale Locale) string {
	return locale.catalog()[n.Code]
}

// Locale selects a message catalog.
type Locale string

const (
	LocaleKorean  Locale = "ko"
	LocaleEnglish Locale = "en"

	DefaultLocale = LocaleKorean
)

// ParseLocale maps a config value to a supported locale, defaulting to Korean.
func ParseLocale(s string) Locale {
	switch Locale(s) {
	case LocaleEnglish:
		return LocaleEnglish
	default:
		return LocaleKorean
	}
}

var catalogs = map[Locale]map[NoticeCode]string{
	LocaleKorean: {
		CodeBlankIngredients: "재료를 입력해주세요!",
		CodeRecipeFailed:     "레시피를 생성하는 중 오류가 발생했습니다.",
		CodeImageFailed:      "요리 이미지를 생성하는 중 오류가 발생했습니다.",
		CodeEditFailed:       "이미지 편집 실패",
		CodeSaveFailed:       "이미지 저장 중 오류가 발생했습니다.",
	},
	LocaleEnglish: {
		CodeBlankIngredients: "Please enter some ingredients!",
		CodeRecipeFailed:     "Something went wrong while generating the recipe.",
		CodeImageFailed:      "Something went wrong while generating the dish photo.",
		CodeEditFailed:       "Failed to edit the image.",
		CodeSaveFailed:       "Something went wrong while saving the image.",
	},
}

func (l Locale) catalog() map[NoticeCode]string {
	if c, ok := catalogs[l]; ok {
		return c
	}
	return catalogs[DefaultLocale]
}

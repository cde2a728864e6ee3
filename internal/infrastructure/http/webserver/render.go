package webserver

import (
	"bytes"
	"html/template"
	"time"

	"github.com/alchemorsel/chefnano/internal/domain/kitchen"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// MarkdownRenderer turns provider markdown into sanitized HTML.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

// NewMarkdownRenderer creates a renderer with GitHub flavored markdown.
func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render converts markdown to HTML safe for embedding in the page. On a
// conversion error the escaped source is returned.
func (r *MarkdownRenderer) Render(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes()))
}

// kitchenView is the template data for the page and the partial.
type kitchenView struct {
	Title        string
	Locale       kitchen.Locale
	Labels       map[string]string
	State        kitchen.State
	RecipeHTML   template.HTML
	Polling      bool
	PollInterval string
	Notice       *noticeView
	EditBusy     bool
	FolderURL    string
	Banner       *bannerView
	Save         *saveView
}

type noticeView struct {
	Message string
	Modal   bool
}

type bannerView struct {
	Method      string
	Filename    string
	RemainingMs int64
}

// saveView asks the browser to hand over the file after a save.
type saveView struct {
	Method      string
	Filename    string
	DownloadURL string
	FolderURL   string
	// FailedURL is where the page reports a hand-over that did not
	// complete; FailedMessage is the alert used when that report fails too.
	FailedURL     string
	FailedMessage string
}

func (s *WebServer) newKitchenView(state kitchen.State, now time.Time) kitchenView {
	v := kitchenView{
		Title:        s.labels["title"],
		Locale:       s.locale,
		Labels:       s.labels,
		State:        state,
		Polling:      state.Busy(),
		PollInterval: pollTrigger(s.config.Server.PollInterval),
		EditBusy:     state.Busy(),
		FolderURL:    s.config.Export.FolderURL,
	}

	if state.Recipe != nil {
		v.RecipeHTML = s.markdown.Render(state.Recipe.Content)
	}
	if state.Notice != nil {
		v.Notice = &noticeView{
			Message: state.Notice.Message(s.locale),
			Modal:   state.Notice.Modal(),
		}
	}
	if receipt := state.LastSave; receipt.BannerVisible(now) {
		v.Banner = &bannerView{
			Method:      string(receipt.Method),
			Filename:    receipt.Filename,
			RemainingMs: receipt.At.Add(receipt.Banner).Sub(now).Milliseconds(),
		}
	}
	return v
}

func pollTrigger(interval time.Duration) string {
	if interval <= 0 {
		interval = time.Second
	}
	return "every " + interval.String()
}

var uiLabels = map[kitchen.Locale]map[string]string{
	kitchen.LocaleKorean: {
		"title":            "셰프 나노: 스마트 키친",
		"tagline":          "당신의 냉장고를 미슐랭 주방으로",
		"ingredients":      "재료를 입력하세요",
		"ingredients_hint": "예: 돼지고기, 대파, 마늘",
		"submit_recipe":    "레시피 추천받기",
		"recipe_heading":   "레시피 결과",
		"print":            "프린트하기 🖨️",
		"recipe_empty":     "재료를 입력하고 버튼을 눌러보세요.",
		"image_pending":    "AI가 요리 이미지를 생성하고 있습니다...",
		"image_empty":      "완성된 요리의 모습이 여기에 나타납니다.",
		"save":             "📥 다운로드 후 드라이브에 저장",
		"edit_heading":     "이미지 AI 편집",
		"edit_hint":        "예: '접시를 하얀색으로 바꿔줘', '더 밝게 해줘'",
		"edit":             "편집",
		"folder":           "드라이브 폴더:",
		"folder_open":      "열기",
		"folder_shortcut":  "구글 드라이브 폴더 바로가기",
		"tip_heading":      "요리 팁",
		"tip":              "생성된 이미지가 마음에 드신다면 '다운로드 후 드라이브에 저장' 버튼을 눌러보세요. 이미지 파일이 다운로드되며 지정하신 구글 드라이브 폴더가 새 창으로 열립니다.",
		"banner_download":  "이미지가 다운로드되었습니다. 새 창에서 열린 드라이브 폴더에 업로드해주세요:",
		"banner_shared":    "이미지가 저장되었습니다:",
		"dismiss":          "확인",
		"dish_alt":         "완성된 요리",
	},
	kitchen.LocaleEnglish: {
		"title":            "Chef Nano: Smart Kitchen",
		"tagline":          "Turn your fridge into a Michelin kitchen",
		"ingredients":      "Enter your ingredients",
		"ingredients_hint": "e.g. pork, green onion, garlic",
		"submit_recipe":    "Suggest a recipe",
		"recipe_heading":   "Recipe",
		"print":            "Print 🖨️",
		"recipe_empty":     "Enter ingredients and press the button.",
		"image_pending":    "The AI is plating your dish...",
		"image_empty":      "Your finished dish will appear here.",
		"save":             "📥 Download and save to Drive",
		"edit_heading":     "AI image editing",
		"edit_hint":        "e.g. 'make the plate white', 'make it brighter'",
		"edit":             "Edit",
		"folder":           "Drive folder:",
		"folder_open":      "Open",
		"folder_shortcut":  "Open the Google Drive folder",
		"tip_heading":      "Cooking tip",
		"tip":              "Like the generated photo? Press 'Download and save to Drive'. The image downloads and your Google Drive folder opens in a new window.",
		"banner_download":  "The image was downloaded. Upload it to the Drive folder that just opened:",
		"banner_shared":    "The image was saved:",
		"dismiss":          "OK",
		"dish_alt":         "Finished dish",
	},
}

func labelsFor(locale kitchen.Locale) map[string]string {
	if l, ok := uiLabels[locale]; ok {
		return l
	}
	return uiLabels[kitchen.DefaultLocale]
}

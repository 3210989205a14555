package service

import (
	"strings"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

// Menu labels. Inbound text is matched against them case-insensitively.
const (
	LabelFindComponent = "Find component"
	LabelGuides        = "Study guides"
	LabelSuggest       = "Suggest an improvement"
	LabelAddIcon       = "Add an icon or logo"
	LabelChanges       = "Latest changes"
	LabelSupport       = "Support"
	LabelBack          = "Back"
	LabelShowMore      = "Show more"

	CommandStart  = "/start"
	CommandCancel = "/cancel"
)

// Reply texts.
const (
	textGreeting       = "Good afternoon!\nI am the design-system assistant."
	textMainMenu       = "You are in the main menu:"
	textIdleHint       = `Press "Find component" or pick an item from the menu.`
	textChooseCategory = "Choose a component type:"
	textEnterQuery     = "Enter a component name:"
	textNotFound       = `Nothing found for "%s". Try another name.`
	textFound          = "Found: %d"
	textShowMore       = "Shown %d of %d. Show more?"
	textNewQuery       = "Enter another component name or press Back."
	textThrottled      = "Too many requests. Please wait a few seconds and try again."
)

var (
	mainMenu = model.Keyboard{
		{LabelFindComponent},
		{LabelGuides, LabelSuggest},
		{LabelAddIcon, LabelChanges},
		{LabelSupport},
	}
	categoryMenu = model.Keyboard{
		{model.LabelMobile, model.LabelWeb},
		{model.LabelIcon},
		{LabelBack},
	}
	backMenu     = model.Keyboard{{LabelBack}}
	showMoreMenu = model.Keyboard{{LabelShowMore}, {LabelBack}}
)

var (
	cancelTokens      = tokenSet(LabelBack, "cancel", CommandCancel)
	affirmativeTokens = tokenSet(LabelShowMore, "yes", "more", "y")
)

// infoPage is static content served outside the search flow.
type infoPage struct {
	label    string
	text     string
	keyboard model.Keyboard
}

var infoPages = pageIndex(
	infoPage{
		label:    LabelGuides,
		text:     `Design-system rules and recommendations live in Figma: <a href="https://www.figma.com/design/5ZYTwB6jw2wutqg60sc4Ff/Granat-Guides-WIP?node-id=181-20673">Granat Guides</a>`,
		keyboard: backMenu,
	},
	infoPage{
		label:    LabelSuggest,
		text:     "➡️ Found a bug? File an issue in GitLab.",
		keyboard: backMenu,
	},
	infoPage{
		label:    LabelAddIcon,
		text:     "➡️ Read the icon requirements in GitLab.",
		keyboard: backMenu,
	},
	infoPage{
		label: LabelChanges,
		text:  "Latest changes in DS GRANAT: https://t.me/c/1397080567/12194",
	},
	infoPage{
		label:    LabelSupport,
		text:     "➡️ Private DS Community group in Telegram\n\n1. Sign in to the corporate bot\n2. Join the group",
		keyboard: backMenu,
	},
)

func tokenSet(tokens ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[token(t)] = struct{}{}
	}
	return set
}

func pageIndex(pages ...infoPage) map[string]infoPage {
	index := make(map[string]infoPage, len(pages))
	for _, p := range pages {
		index[token(p.label)] = p
	}
	return index
}

// token is the comparison form of inbound text.
func token(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func isCancel(tok string) bool {
	_, ok := cancelTokens[tok]
	return ok
}

func isAffirmative(tok string) bool {
	_, ok := affirmativeTokens[tok]
	return ok
}

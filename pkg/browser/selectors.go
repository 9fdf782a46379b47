package browser

// DOM selectors for x.com. These track the platform's data-testid
// attributes and need updating when the markup changes.
const (
	selFollowerCell  = `[data-testid="UserCell"]`
	selProfileButton = `[data-testid="SideNav_AccountSwitcher_Button"]`
	selPrimaryColumn = `[data-testid="primaryColumn"]`
	selCaretButton   = `[data-testid="caret"]`
	selMenuItem      = `[role="menuitem"]`
	selConfirmButton = `[data-testid="confirmationSheetConfirm"]`
)

// Menu entry text variants for the remove-follower action.
var removeFollowerTexts = []string{
	"Remove this follower",
	"Remove follower",
}

const (
	baseURL          = "https://x.com"
	followersURLFmt  = "https://x.com/%s/followers"
	scrollStepPixels = 600
)

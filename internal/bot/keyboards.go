package bot

// Button labels double as the dispatcher's routing keys for non-command messages.
const (
	btnConnect = "🔐 Connect Spotify"
	btnAdd     = "🎵 Add track"
	btnTracks  = "📂 My tracks"
	btnDelete  = "🗑 Delete tracks"
	btnStats   = "📊 Statistics"
)

// mainKeyboard returns the persistent reply keyboard shown to every user.
func mainKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: btnConnect}},
			{{Text: btnAdd}},
			{{Text: btnTracks}, {Text: btnDelete}},
			{{Text: btnStats}},
		},
		ResizeKeyboard: true,
	}
}

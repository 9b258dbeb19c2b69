// Package bot implements the Telegram front-end: a thin Bot API client and a
// long-polling dispatcher routing chat messages to library handlers.
//
// # Routing
//
// Messages route three ways: slash commands (/start), reply-keyboard button
// labels, and per-user conversation state for the two flows that expect free
// text (add by name, delete by number). State lives in process memory keyed
// by identity, like the rest of the bot's volatile data.
//
// # Error policy
//
// Handler errors never stop the poll loop. [Dispatcher.dispatch] converts
// token-lifecycle errors into actionable chat replies (connect / reconnect
// prompts) and everything else into a generic failure message.
//
// # Why no Telegram SDK
//
// The client speaks the Bot API directly over net/http: the bot uses three
// methods (getUpdates, sendMessage, sendPhoto) and a full SDK would dwarf the
// surface it serves.
package bot

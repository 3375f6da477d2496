//go:build board_tigr_b

package boards

// Selected is the board the firmware is built for.
var Selected = TIGRB

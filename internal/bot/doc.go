// Package bot is the Matrix side of coven-mailer. Every joined room is one
// conversation session; messages are filtered, deduplicated and handed to the
// conversation Machine in arrival order per room.
package bot

// Package chat turns prefixed text commands into playback operations and renders
// their results independently of the chat platform.
package chat

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/PurpleQuas4r/Sthashior/internal/flood"
	"github.com/PurpleQuas4r/Sthashior/internal/player"
	"github.com/PurpleQuas4r/Sthashior/pkg/text"
)

// Message is a normalized guild text message.
type Message struct {
	GuildID   string
	ChannelID string
	UserID    string
	// Mention is how the author is addressed in a reply.
	Mention string
	Text    string
}

// Player is the playback surface commands drive.
type Player interface {
	Join(ctx context.Context, guildID, userID string) player.Result
	Leave(ctx context.Context, guildID string) player.Result
	Play(ctx context.Context, guildID, userID, query string) player.Result
	Pause(ctx context.Context, guildID string) player.Result
	Resume(ctx context.Context, guildID string) player.Result
	Stop(ctx context.Context, guildID string) player.Result
	Skip(ctx context.Context, guildID string) player.Result
	Queue(ctx context.Context, guildID string) player.Result
	NowPlaying(ctx context.Context, guildID string) player.Result
	Loop(ctx context.Context, guildID, arg string) player.Result
	Shuffle(ctx context.Context, guildID string) player.Result
	Remove(ctx context.Context, guildID string, position int) player.Result
	Lyrics(ctx context.Context, guildID, name string) player.Result
}

// BlockRecorder counts commands dropped by the floodgate.
type BlockRecorder interface {
	CommandBlocked()
}

// Reply is one command's result together with what the renderer needs around it.
type Reply struct {
	Command string
	Result  player.Result
	Mention string
	// Wait is the remaining cooldown for a flood warning.
	Wait time.Duration
}

// Dispatcher parses commands, applies the floodgate and calls the player.
type Dispatcher struct {
	parser   *text.Parser
	gate     *flood.Floodgate
	player   Player
	recorder BlockRecorder
	logger   *zap.Logger
}

func NewDispatcher(prefix string, gate *flood.Floodgate, p Player, recorder BlockRecorder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		parser:   text.NewParser(prefix),
		gate:     gate,
		player:   p,
		recorder: recorder,
		logger:   logger,
	}
}

var knownCommands = map[string]bool{
	player.CommandJoin:       true,
	player.CommandLeave:      true,
	player.CommandPlay:       true,
	player.CommandPause:      true,
	player.CommandResume:     true,
	player.CommandStop:       true,
	player.CommandSkip:       true,
	player.CommandQueue:      true,
	player.CommandNowPlaying: true,
	player.CommandLoop:       true,
	player.CommandShuffle:    true,
	player.CommandRemove:     true,
	player.CommandLyrics:     true,
}

// Handle runs msg if it is a known command. ok is false when nothing should be sent back.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) (reply Reply, ok bool) {
	cmd, isCommand := d.parser.ParseCommand(msg.Text)
	if !isCommand || !knownCommands[cmd.Name] {
		return Reply{}, false
	}

	if d.gate != nil {
		verdict := d.gate.Check(msg.GuildID, msg.UserID)
		if !verdict.Allowed {
			if d.recorder != nil {
				d.recorder.CommandBlocked()
			}
			d.logger.Debug("Command dropped by floodgate",
				zap.String("guildID", msg.GuildID),
				zap.String("userID", msg.UserID),
				zap.String("command", cmd.Name))
			if !verdict.Warn {
				return Reply{}, false
			}
			return Reply{
				Command: cmd.Name,
				Result:  player.Result{Outcome: player.InvalidState, Key: "flood.warning"},
				Mention: msg.Mention,
				Wait:    verdict.Remaining,
			}, true
		}
	}

	d.logger.Debug("Handling command",
		zap.String("guildID", msg.GuildID),
		zap.String("userID", msg.UserID),
		zap.String("command", cmd.Name))

	return Reply{Command: cmd.Name, Result: d.run(ctx, msg, cmd), Mention: msg.Mention}, true
}

func (d *Dispatcher) run(ctx context.Context, msg *Message, cmd text.Command) player.Result {
	guildID := msg.GuildID
	switch cmd.Name {
	case player.CommandJoin:
		return d.player.Join(ctx, guildID, msg.UserID)
	case player.CommandLeave:
		return d.player.Leave(ctx, guildID)
	case player.CommandPlay:
		return d.player.Play(ctx, guildID, msg.UserID, cmd.Args)
	case player.CommandPause:
		return d.player.Pause(ctx, guildID)
	case player.CommandResume:
		return d.player.Resume(ctx, guildID)
	case player.CommandStop:
		return d.player.Stop(ctx, guildID)
	case player.CommandSkip:
		return d.player.Skip(ctx, guildID)
	case player.CommandQueue:
		return d.player.Queue(ctx, guildID)
	case player.CommandNowPlaying:
		return d.player.NowPlaying(ctx, guildID)
	case player.CommandLoop:
		return d.player.Loop(ctx, guildID, cmd.Args)
	case player.CommandShuffle:
		return d.player.Shuffle(ctx, guildID)
	case player.CommandRemove:
		fields := cmd.Fields()
		if len(fields) != 1 {
			return player.Result{Outcome: player.InvalidArgument, Key: "error.usage_remove"}
		}
		position, err := strconv.Atoi(fields[0])
		if err != nil {
			return player.Result{Outcome: player.InvalidArgument, Key: "error.usage_remove"}
		}
		return d.player.Remove(ctx, guildID, position)
	default:
		return d.player.Lyrics(ctx, guildID, cmd.Args)
	}
}

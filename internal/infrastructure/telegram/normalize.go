package telegram

import (
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"github.com/supersunho/senseinfo/internal/domain"
)

// normalizeMessage decodes one raw channel update into a ChannelEvent.
// Heterogeneous sender and media variants are resolved here so the
// processing pipeline only ever sees the fixed event shape. Returns
// false for service messages, empty messages and non-channel peers.
func normalizeMessage(e tg.Entities, msg tg.MessageClass) (domain.ChannelEvent, bool) {
	m, ok := msg.(*tg.Message)
	if !ok {
		return domain.ChannelEvent{}, false
	}

	peer, ok := m.PeerID.(*tg.PeerChannel)
	if !ok {
		return domain.ChannelEvent{}, false
	}

	event := domain.ChannelEvent{
		ChannelID: peer.ChannelID,
		MessageID: int64(m.ID),
		Text:      m.Message,
		Sender:    normalizeSender(e, m, peer.ChannelID),
		Media:     normalizeMedia(m.Media),
		Views:     m.Views,
		Forwards:  m.Forwards,
		Date:      time.Unix(int64(m.Date), 0),
	}

	if m.EditDate > 0 {
		edit := time.Unix(int64(m.EditDate), 0)
		event.EditDate = &edit
	}

	return event, true
}

// normalizeSender resolves the message author against the update's
// entity map. Anonymous channel posts carry the channel itself (or the
// post author signature) as the sender.
func normalizeSender(e tg.Entities, m *tg.Message, channelID int64) domain.SenderInfo {
	switch from := m.FromID.(type) {
	case *tg.PeerUser:
		sender := domain.SenderInfo{}
		id := from.UserID
		sender.ID = &id
		if user, ok := e.Users[from.UserID]; ok {
			sender.Username = user.Username
			sender.DisplayName = strings.TrimSpace(user.FirstName + " " + user.LastName)
		}
		return sender
	case *tg.PeerChannel:
		sender := domain.SenderInfo{}
		id := from.ChannelID
		sender.ID = &id
		if channel, ok := e.Channels[from.ChannelID]; ok {
			sender.Username = channel.Username
			sender.DisplayName = channel.Title
		}
		return sender
	}

	// Anonymous post: prefer the author signature, fall back to the
	// channel title.
	sender := domain.SenderInfo{DisplayName: m.PostAuthor}
	if sender.DisplayName == "" {
		if channel, ok := e.Channels[channelID]; ok {
			sender.Username = channel.Username
			sender.DisplayName = channel.Title
		}
	}
	return sender
}

// normalizeMedia maps the media class onto the fixed media tag set
func normalizeMedia(media tg.MessageMediaClass) domain.MediaKind {
	switch m := media.(type) {
	case nil:
		return domain.MediaNone
	case *tg.MessageMediaPhoto:
		return domain.MediaPhoto
	case *tg.MessageMediaDocument:
		if doc, ok := m.Document.(*tg.Document); ok {
			for _, attr := range doc.Attributes {
				if _, ok := attr.(*tg.DocumentAttributeVideo); ok {
					return domain.MediaVideo
				}
			}
		}
		return domain.MediaDocument
	case *tg.MessageMediaWebPage:
		return domain.MediaWebPage
	default:
		return domain.MediaOther
	}
}

package classify

import (
	"strings"

	"github.com/sells-group/funnel-cli/internal/model"
)

// channelKeywords maps substrings of the source/revenue columns onto channel
// categories, in precedence order.
var channelKeywords = []struct {
	keyword string
	channel model.ChannelCategory
}{
	{"partner", model.ChannelPartner},
	{"alliance", model.ChannelPartner},
	{"referr", model.ChannelReferral},
	{"reference", model.ChannelReferral},
	{"outbound", model.ChannelOutbound},
	{"cold", model.ChannelOutbound},
	{"prospect", model.ChannelOutbound},
	{"inbound", model.ChannelInbound},
	{"website", model.ChannelInbound},
	{"marketing", model.ChannelInbound},
	{"event", model.ChannelEvent},
	{"conference", model.ChannelEvent},
	{"webinar", model.ChannelEvent},
}

// Channel derives the channel category from the source-of-lead and
// revenue-source columns. First keyword hit wins; source-of-lead is checked
// before revenue-source.
func Channel(sourceOfLead, revenueSource string) model.ChannelCategory {
	for _, text := range []string{Norm(sourceOfLead), Norm(revenueSource)} {
		if text == "" {
			continue
		}
		for _, kw := range channelKeywords {
			if strings.Contains(text, kw.keyword) {
				return kw.channel
			}
		}
	}
	return model.ChannelOther
}

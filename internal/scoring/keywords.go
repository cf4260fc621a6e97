package scoring

// Built-in keyword tables backing the content heuristics and the default
// app tiers. These sit underneath the user's PriorityRules: user lists are
// consulted first, these fill in when no user rule matches.

var communicationTier1 = []string{"WhatsApp", "Signal", "Messages", "Phone", "Telegram"}
var communicationTier2 = []string{"Gmail", "Outlook", "Slack", "Discord", "Teams", "Email", "Mail"}
var communicationTier3 = []string{"Instagram", "Twitter", "X", "Facebook", "LinkedIn", "Reddit"}
var lowPriorityApps = []string{"Games", "News", "Shopping", "YouTube", "Netflix", "Spotify"}

// Urgency tiers are mutually exclusive at scoring time; only the highest
// matching tier counts.
var urgencyTier1 = []string{"urgent", "critical", "asap", "emergency", "immediately", "911"}
var urgencyTier2 = []string{"important", "deadline", "due", "tonight", "today", "expires"}
var urgencyTier3 = []string{"tomorrow", "this week", "reminder", "follow up", "upcoming", "soon"}

var requestKeywords = []string{"please reply", "need response", "waiting for", "respond by", "confirm", "rsvp"}
var meetingKeywords = []string{"meeting", "call", "zoom", "interview", "appointment", "event"}
var temporalKeywords = []string{"due", "deadline", "expires", "ends", "starts", "schedule", "calendar"}
var financialKeywords = []string{"payment", "invoice", "bill", "charge", "transaction", "bank", "fraud"}

// The surrounding spaces are deliberate: they keep "you" from matching
// inside words like "your favourite bayou".
var personalKeywords = []string{" you ", " your ", "you're", "you've", "you'll"}

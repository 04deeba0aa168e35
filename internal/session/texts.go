package session

// Fixed texts for the conversation flow.
const (
	onboardingText = "Hey! I'll send you a message at 9 PM every day letting you know that you should state what you're grateful for.\n\n" +
		"After you're done saying what you're grateful for, write /done and I'll ask what your mistakes were. " +
		"When you're done telling me about your mistakes, write /done again to end our session.\n\n" +
		"You can change what time I'll ask you at by writing something like '/time 9:00 AM' or '/time 9:00' (in 24-hour time), " +
		"and you can send me your location so I know your timezone.\n\n" +
		"Get help with /help"

	helpText = "/start will begin a new session.\n" +
		"/done indicates that you're done with the current part of a session: " +
		"done being grateful, or done telling me your mistakes.\n" +
		"/time sets the time you'll be asked to state what you're grateful for. " +
		"Format your message like '/time 7:00' or '/time 8:00 PM'. " +
		"/time on its own shows the current setting.\n" +
		"Send me a location and I'll use its timezone for your reminder."

	gratitudePrompt = "What are you grateful for today?"
	resumePrompt    = "Hi! What are you grateful for?"
	mistakesPrompt  = "That's great. What were your mistakes?"
	closingText     = "Okay, great talking to you!"
	idleNudge       = "If you would like to start a session, please type /start."

	badTimeText = "Sorry, I couldn't read that time. Try something like '/time 7:00' or '/time 8:00 PM'."
	noZoneText  = "Sorry, I couldn't work out a timezone for that location, so I'm keeping your current one."
)

// Reply pools for free-form messages. The acknowledgement and the follow-up
// are picked independently so replies don't feel canned.
var (
	gratitudeAcks = []string{
		"Great!",
		"Love that.",
		"Wonderful.",
		"That's a good one.",
		"Nice!",
	}
	gratitudeFollowUps = []string{
		"What else are you grateful for?",
		"Anything else you're grateful for?",
		"What other good things happened today?",
		"Keep going, what else?",
		"Is there more you're thankful for?",
	}
	mistakeAcks = []string{
		"I'm sorry to hear that.",
		"Thanks for being honest.",
		"That takes some courage to admit.",
		"Noted.",
		"We all have days like that.",
	}
	mistakeFollowUps = []string{
		"What other mistakes did you make today?",
		"Anything else that went wrong?",
		"What else would you do differently?",
		"Any other missteps worth noting?",
		"Is there more you want to get off your chest?",
	}
)

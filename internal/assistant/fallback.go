package assistant

var genericFallbacks = []string{
	"I understand you're looking for guidance. While I'm temporarily unable to provide a detailed response, I recommend checking the official documentation for the technology you're working with.",
	"Great question! Although I'm having some technical difficulties right now, I suggest breaking complex problems into smaller parts and tackling them one by one.",
	"I appreciate your inquiry! While I'm currently unavailable, consider reaching out to your mentor for personalized guidance.",
	"That's an interesting challenge! Even though I can't provide a full response at the moment, try explaining your problem out loud to a colleague. It often clarifies your thinking.",
	"Thank you for your question! While I'm temporarily offline, remember that the best way to learn is hands-on practice. Try building a small project around the concept.",
}

var specializedFallbacks = map[string][]string{
	"software-dev": {
		"While I'm having technical difficulties, I'd recommend checking the official documentation for your stack. Issue trackers and community forums are also excellent resources for debugging.",
		"I'm temporarily unavailable, but consider adding logging to trace your code step by step. A debugger is your best friend for troubleshooting.",
		"Although I can't assist right now, breaking complex problems into smaller functions often makes debugging much easier. Try isolating the problematic code.",
	},
	"marketing": {
		"While I'm temporarily offline, consider analyzing your target audience's behavior and preferences. Analytics tools can provide valuable insights for your strategy.",
		"I'm having technical issues, but successful marketing often starts with understanding your customer's pain points and how your product solves them.",
		"Although I can't respond right now, focus on creating value-driven content that addresses your audience's specific needs.",
	},
	"healthcare": {
		"While I'm temporarily unavailable, I recommend consulting peer-reviewed journals and professional associations for current and accurate information.",
		"I'm having technical difficulties, but always verify healthcare information with qualified professionals and evidence-based sources.",
		"Although I can't assist right now, consider reaching out to healthcare professionals or academic institutions for guidance.",
	},
	"legal": {
		"While I'm temporarily offline, legal matters require consultation with qualified attorneys. Your local bar association can provide referrals.",
		"I'm having technical issues, but legal research should always be verified against current statutes and regulations.",
		"Although I can't respond right now, legal advice should only come from licensed attorneys familiar with your jurisdiction.",
	},
	"business": {
		"While I'm temporarily unavailable, consider analyzing successful businesses in your industry to understand their strategies and positioning.",
		"I'm having technical difficulties, but solid business planning starts with thorough market research and understanding your competition.",
		"Although I can't assist right now, validate your ideas with potential customers before making major investments.",
	},
}

const fallbackSummary = "• Session covered key concepts for the learner's goals\n• Mentor provided guidance on best practices\n• Discussion included practical problem-solving techniques"

var staticResources = []string{
	"MDN Web Docs - https://developer.mozilla.org",
	"freeCodeCamp - https://freecodecamp.org",
	"The Go Programming Language Tour - https://go.dev/tour",
	"CSS-Tricks - https://css-tricks.com",
	"React Official Docs - https://react.dev",
}

var suggestedQuestions = []string{
	"How should I prepare for my next mentoring session?",
	"What are best practices for structuring a side project?",
	"How do I debug errors effectively?",
	"How can I improve my code's performance?",
	"What should I learn next to reach my goal?",
}

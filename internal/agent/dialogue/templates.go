package dialogue

import "github.com/coilworks/springchat/internal/agent/model"

// Template pools. Every pool has at least two variants so repeated prompts
// do not read machine-generated; selection is seeded in the policy.

var askTemplates = map[model.Field][]string{
	model.FieldFreeLength: {
		"What is the free length of the spring?",
		"Could you tell me the spring's free length?",
		"What free length should I use?",
	},
	model.FieldSetPoints: {
		"What set points should the test run? Give each as a position and load, e.g. 40mm at 25N.",
		"Which positions and loads do you want to test? For example: 40mm at 25N.",
	},
	model.FieldWireDiameter: {
		"What is the wire diameter?",
		"Could you give me the wire diameter?",
	},
	model.FieldOuterDiameter: {
		"What is the outer diameter?",
		"Could you tell me the outer diameter?",
	},
	model.FieldCoilCount: {
		"How many coils does the spring have?",
		"What is the coil count?",
	},
	model.FieldPartName: {
		"What should I call this part?",
		"What is the part name?",
	},
	model.FieldPartNumber: {
		"What is the part number?",
		"Do you have a part number for this spring?",
	},
	model.FieldPartID: {
		"What is the part ID?",
		"Is there a part ID I should record?",
	},
	model.FieldSafetyLimit: {
		"Is there a safety limit I should enforce?",
		"What maximum load should the test never exceed?",
	},
}

var followUpAskTemplates = []string{
	"Sorry to press, but I still need the %s.",
	"I still don't have the %s. Could you give it to me?",
}

var confirmTemplates = []string{
	"Just to check, is the %s %s?",
	"Did you mean a %s of %s?",
	"I want to make sure I got that right. Is the %s %s?",
}

var confirmFollowUpTemplates = []string{
	"I still need a yes or no: is the %s %s?",
	"Before we move on, can you confirm the %s is %s?",
}

var ambiguousTemplates = []string{
	"I caught the value %s but I'm not sure which measurement it is. Is that the %s?",
	"Got %s. Which one is that, the %s?",
}

var incompletePairTemplates = []string{
	"I have %s for a set point but not its counterpart. What goes with it?",
	"One of your set points is missing a value. I have %s so far. What's the other half?",
}

var unresolvedCorrectionTemplates = []string{
	"I can tell something needs fixing, but which specification should I change?",
	"Happy to correct that. Which value is wrong?",
}

var unresolvedCorrectionFieldTemplates = []string{
	"I understand the %s needs changing. What should it be?",
	"Got it, the %s is wrong. What's the right value?",
}

var correctionAckTemplates = []string{
	"Updated: %s is now %s.",
	"No problem, I've changed the %s to %s.",
	"Corrected. The %s is %s.",
}

var acceptedAckTemplates = []string{
	"Got it.",
	"Noted.",
	"Thanks, recorded.",
}

var proceedTemplates = []string{
	"I have everything I need. Here is the test specification:\n%s",
	"That completes the required details. Final specification:\n%s",
}

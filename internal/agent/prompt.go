package agent

import (
	"fmt"

	"github.com/nbenliogludev/survey-agent/internal/config"
	"github.com/nbenliogludev/survey-agent/internal/llm"
)

const snapshotMimeType = "image/png"

const personaInstruction = "You are an AI assistant representing a person with these details: %s. " +
	"Answer survey questions consistently. Be concise."

const decisionInstruction = `Analyze the attached screenshot and this list of interactive elements:
---
%s
---
Your task is to respond with ONLY the number of the element to interact with next.`

// BuildRequest combines the persona, the element listing and the page
// snapshot into a single reasoning request.
func BuildRequest(persona *config.Persona, inv *Inventory, screenshot []byte) llm.Request {
	prompt := fmt.Sprintf(personaInstruction, persona.JSON()) + "\n" +
		fmt.Sprintf(decisionInstruction, inv.Listing())
	return llm.Request{
		Prompt:   prompt,
		Image:    screenshot,
		MimeType: snapshotMimeType,
	}
}

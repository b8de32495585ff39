package catalog

import "time"

const DefaultSetID = "default"

func q(text string) Question { return Question{Text: text} }

// Default returns a fresh copy of the built-in question set.
func Default() QuestionSet {
	return QuestionSet{
		ID:          DefaultSetID,
		Name:        "Default Analysis Set",
		Description: "Default question set for content analysis",
		IsDefault:   true,
		CreatedAt:   time.Unix(0, 0).UTC(),
		UpdatedAt:   time.Unix(0, 0).UTC(),
		Questions: Catalog{
			{Name: "Project Overview", Questions: []Question{
				q("What is the primary objective of the project?"),
				{Text: "What are the key deliverables?", Instruction: "Give me this as a bulleted list with sub items broken out."},
				q("What are the success criteria for the project?"),
			}},
			{Name: "Scope of Work", Questions: []Question{
				q("What tasks need to be completed?"),
				q("What are the specific requirements and constraints?"),
				q("Are there any assumptions or exclusions?"),
			}},
			{Name: "Project Deliverables", Questions: []Question{
				q("What are the specific deliverables and their descriptions?"),
				q("What are the deadlines for each deliverable?"),
				q("What are the acceptance criteria for each deliverable?"),
			}},
			{Name: "Timeline and Milestones", Questions: []Question{
				q("What is the project start date?"),
				q("What is the project end date?"),
				q("What are the major milestones and their deadlines?"),
			}},
			{Name: "Roles and Responsibilities", Questions: []Question{
				q("Who are the key stakeholders?"),
				q("What are the roles and responsibilities of each team member?"),
				q("Are there any third-party vendors or partners involved?"),
			}},
			{Name: "Budget and Payment Terms", Questions: []Question{
				q("What is the total budget for the project?"),
				q("How will payments be structured (e.g., fixed Fee price, Fixed Fee Milestones, or time and materials)?"),
				q("What are the payment milestones?"),
			}},
			{Name: "Project Management and Reporting", Questions: []Question{
				q("What project management methodology will be used?"),
				q("How will progress be tracked and reported?"),
				q("What tools and software will be used for project management and communication?"),
			}},
			{Name: "Risk Management", Questions: []Question{
				q("What are the potential risks and their mitigation strategies?"),
				q("Who is responsible for managing risks?"),
			}},
			{Name: "Legal and Compliance", Questions: []Question{
				q("Are there any legal or regulatory requirements that need to be addressed?"),
				q("What are the confidentiality and non-disclosure requirements?"),
			}},
			{Name: "Post-Project Support", Questions: []Question{
				q("Will there be any post-project support or maintenance required?"),
				q("What are the terms for post-project support?"),
			}},
			{Name: "Dependencies and Constraints", Questions: []Question{
				q("Are there any dependencies on other projects or external factors?"),
				q("What constraints could impact the project?"),
			}},
		},
	}
}

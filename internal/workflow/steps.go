package workflow

type Step string

const (
	StepParseMessage     Step = "parse_message"
	StepExtractCompany   Step = "extract_company"
	StepFindCustomer     Step = "find_customer"
	StepFindSalesperson  Step = "find_salesperson"
	StepExtractProducts  Step = "extract_products"
	StepMatchProducts    Step = "match_products"
	StepCalculatePricing Step = "calculate_pricing"
	StepBuildOffer       Step = "build_offer"
	StepCreateOffer      Step = "create_offer"
	StepVerifyOffer      Step = "verify_offer"
	StepSendConfirmation Step = "send_confirmation"
	StepComplete         Step = "complete"
)

var stepOrder = []Step{
	StepParseMessage,
	StepExtractCompany,
	StepFindCustomer,
	StepFindSalesperson,
	StepExtractProducts,
	StepMatchProducts,
	StepCalculatePricing,
	StepBuildOffer,
	StepCreateOffer,
	StepVerifyOffer,
	StepSendConfirmation,
	StepComplete,
}

var criticalSteps = map[Step]struct{}{
	StepParseMessage:     {},
	StepExtractCompany:   {},
	StepFindCustomer:     {},
	StepMatchProducts:    {},
	StepCalculatePricing: {},
	StepCreateOffer:      {},
}

var retriableSteps = map[Step]struct{}{
	StepFindCustomer:    {},
	StepFindSalesperson: {},
	StepMatchProducts:   {},
	StepCreateOffer:     {},
}

func Steps() []Step {
	out := make([]Step, len(stepOrder))
	copy(out, stepOrder)
	return out
}

func (s Step) Critical() bool {
	_, ok := criticalSteps[s]
	return ok
}

func (s Step) Retriable() bool {
	_, ok := retriableSteps[s]
	return ok
}

func (s Step) Next() (next Step, ok bool) {
	for i, step := range stepOrder {
		if step == s && i+1 < len(stepOrder) {
			return stepOrder[i+1], true
		}
	}
	return "", false
}

package domain

// KnownStates lists the Indian states and union territories offered as suggestions
// for the registration state field. The field itself accepts free text.
var KnownStates = []string{
	"Andhra Pradesh", "Arunachal Pradesh", "Assam", "Bihar", "Chhattisgarh", "Goa", "Gujarat",
	"Haryana", "Himachal Pradesh", "Jharkhand", "Karnataka", "Kerala", "Madhya Pradesh", "Maharashtra",
	"Manipur", "Meghalaya", "Mizoram", "Nagaland", "Odisha", "Punjab", "Rajasthan", "Sikkim", "Tamil Nadu",
	"Telangana", "Tripura", "Uttar Pradesh", "Uttarakhand", "West Bengal", "Andaman and Nicobar Islands",
	"Chandigarh", "Dadra and Nagar Haveli and Daman and Diu", "Delhi", "Lakshadweep", "Puducherry",
}

var knownStateSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(KnownStates))
	for _, s := range KnownStates {
		m[s] = struct{}{}
	}
	return m
}()

func IsKnownState(s string) bool {
	_, ok := knownStateSet[s]
	return ok
}

package patterns

import (
	"regexp"

	"github.com/wolfman30/scam-honeypot/internal/models"
)

// Default builds the built-in library.
func Default(opts ...Option) *Library {
	l := &Library{
		version: DefaultVersion,
		signals: map[SignalGroup][]Signal{
			GroupScam:      scamSignals(),
			GroupPayment:   paymentSignals(),
			GroupBenign:    benignSignals(),
			GroupDisengage: disengageSignals(),
		},
		recognizers: defaultRecognizers(),
		banks:       defaultBanks(),
		upiProviders: setOf(
			"paytm", "ptyes", "ptaxis", "pthdfc", "ptsbi", "ybl", "ibl", "axl", "apl", "yapl",
			"okaxis", "okhdfcbank", "okicici", "oksbi", "upi", "sbi", "icici", "hdfcbank",
			"axisbank", "axisb", "kotak", "kmbl", "idfcbank", "idfcfirst", "indus", "federal",
			"fbl", "pnb", "barodampay", "boi", "cnrb", "unionbank", "yesbank", "rbl",
			"airtel", "jio", "freecharge", "mobikwik", "ikwik", "waicici", "wahdfcbank",
			"wasbi", "waaxis", "postbank", "aubank", "dbs", "hsbc", "sc", "citi",
		),
		trustedDomains: setOf(
			"onlinesbi.sbi", "sbi.co.in", "hdfcbank.com", "icicibank.com", "axisbank.com",
			"kotak.com", "pnbindia.in", "bankofbaroda.in", "canarabank.com", "unionbankofindia.co.in",
			"rbi.org.in", "npci.org.in", "incometax.gov.in", "gov.in", "nic.in", "uidai.gov.in",
			"paytm.com", "phonepe.com", "google.com", "amazon.in", "flipkart.com",
			"indiapost.gov.in", "wa.me", "whatsapp.com",
			"netbanking.hdfcbank.com", "retail.onlinesbi.sbi", "infinity.icicibank.com",
			"netbanking.kotak.com",
		),
		hostingDomains: setOf(
			"sites.google.com", "docs.google.com", "drive.google.com", "forms.google.com",
		),
		shorteners: setOf(
			"bit.ly", "tinyurl.com", "t.co", "goo.gl", "is.gd", "cutt.ly", "rb.gy",
			"shorturl.at", "ow.ly", "tiny.cc", "s.id", "rebrand.ly",
		),
		deceptive: []string{
			"kyc", "verify", "verification", "update", "secure", "login", "signin", "sign-in",
			"account", "banking", "reward", "refund", "prize", "lottery", "claim", "bonus",
			"otp", "unblock", "suspend", "wallet", "support", "helpdesk", "customs",
			"sbi", "hdfc", "icici", "axis", "paytm", "phonepe", "gpay", "upi", "rbi", "aadhaar",
		},
		accountContext: regexp.MustCompile(`(?i)\b(a/?c|acc(?:oun)?t|acct)\b(?:\s*(?:no\.?|number|num|#))?\s*(?:is|:|-)?\s*$`),
		whatsappCtx:    regexp.MustCompile(`(?i)\bwhats\s*app\b[^0-9]*$`),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func signal(name string, cat models.Category, weight float64, expr string) Signal {
	return Signal{Name: name, Category: cat, Weight: weight, re: regexp.MustCompile(expr)}
}

func scamSignals() []Signal {
	return []Signal{
		signal("scam:account_blocked", models.CategoryBankImpersonation, 0.7,
			`(?i)\b(account|a/c|card)\b.{0,40}\b(blocked|block|suspended|frozen|deactivated|closed|locked)\b`),
		signal("scam:kyc_update", models.CategoryKYCUpdate, 0.8,
			`(?i)\b(kyc|pan\s*card|aadhaa?r)\b.{0,40}\b(update|updated|expired?|verify|verification|pending|link)\b`),
		signal("scam:lottery", models.CategoryLotteryReward, 0.8,
			`(?i)\b(congratulations|you\s+(have\s+)?won|winner|lucky\s+draw|lottery|jackpot|cash\s+prize|kbc)\b`),
		signal("scam:job_offer", models.CategoryJobOffer, 0.7,
			`(?i)\b(work\s+from\s+home|part[\s-]?time\s+job|like\s+(youtube\s+)?videos|earn\s+(rs\.?|₹|inr)?\s*\d[\d,]*\s*(daily|per\s+day|a\s+day))\b`),
		signal("scam:investment", models.CategoryInvestment, 0.8,
			`(?i)\b(guaranteed\s+returns?|double\s+your\s+money|crypto\s+(investment|trading)|100\s*%\s+profit|stock\s+tips\s+group)\b`),
		signal("scam:remote_access", models.CategoryTechSupport, 0.7,
			`(?i)\b(anydesk|teamviewer|quick\s*support|rustdesk|remote\s+access)\b`),
		signal("scam:parcel_held", models.CategoryDelivery, 0.7,
			`(?i)\b(parcel|package|courier|shipment|consignment)\b.{0,40}\b(held|on\s+hold|customs|undelivered|seized|address\s+incomplete)\b`),
		signal("scam:authority_threat", models.CategoryGovernmentImpersonation, 0.8,
			`(?i)\b(cbi|ed\s+officer|income\s+tax|customs\s+officer|police|cyber\s*cell|narcotics|trai|digital\s+arrest)\b.{0,60}\b(case|warrant|arrest|fine|penalty|fir|illegal)\b`),
		signal("scam:utility_cut", models.CategoryUtilityDisconnection, 0.8,
			`(?i)\b(electricity|power|light)\b.{0,40}\b(disconnect(ed|ion)?|cut\s+off|will\s+be\s+cut)\b`),
		signal("scam:leak_threat", models.CategorySextortion, 0.7,
			`(?i)\b(video|photos?|pictures?)\b.{0,30}\b(viral|leak|leaked|send\s+to\s+your\s+contacts|share\s+with\s+your\s+(family|contacts))\b`),
		signal("scam:credential_request", models.CategoryPhishing, 0.9,
			`(?i)\b(share|send|tell|give|provide)\b.{0,20}\b(otp|pin|cvv|password|mpin|card\s+number)\b`),
		signal("scam:urgency", models.CategoryOther, 0.4,
			`(?i)\b(immediately|urgent(ly)?|within\s+\d+\s+(hours?|minutes?|mins?)|today\s+itself|last\s+chance|final\s+warning)\b`),
	}
}

func paymentSignals() []Signal {
	return []Signal{
		signal("payment:send_money", models.CategoryOther, 0.8,
			`(?i)\b(send|pay|transfer|deposit)\b.{0,40}(₹|\brs\.?|\binr\b|\brupees\b|\b\d{3,})`),
		signal("payment:fee", models.CategoryOther, 0.8,
			`(?i)\b(processing|registration|clearance|activation|verification|release|tax)\s+(fee|fees|charge|charges)\b`),
		signal("payment:upi_transfer", models.CategoryOther, 0.7,
			`(?i)\b(pay|send|transfer)\b.{0,30}\b(upi|gpay|google\s*pay|phonepe|paytm)\b`),
		signal("payment:qr_code", models.CategoryOther, 0.7,
			`(?i)\b(scan|use)\b.{0,20}\bqr\s*code\b`),
		signal("payment:gift_card", models.CategoryOther, 0.7,
			`(?i)\bgift\s*cards?\b`),
	}
}

func benignSignals() []Signal {
	return []Signal{
		signal("benign:gratitude", models.CategoryNone, 0.5,
			`(?i)^\W*(?:(?:thanks|thank\s+you|thx|ok(?:ay)?|noted|sure|got\s+it|sir|madam|ma'?am|so\s+much|a\s+lot)\b\W*)+$`),
		signal("benign:self_verification", models.CategoryNone, 0.7,
			`(?i)\bi\s*(will|'ll)\s+(check|visit|call|contact|confirm)\b.{0,40}\b(bank|branch|office|customer\s+care|myself)\b`),
		signal("benign:otp_warning", models.CategoryNone, 0.6,
			`(?i)\b(do\s+not|don'?t|never)\s+share\s+(your\s+|this\s+)?(otp|pin|password|cvv)\b`),
		signal("benign:transaction_alert", models.CategoryNone, 0.6,
			`(?i)\b(credited|debited)\b.{0,80}\b(avl\s*bal|available\s+balance)\b`),
		signal("benign:order_status", models.CategoryNone, 0.5,
			`(?i)\b(order|appointment|booking)\s+(is\s+|has\s+been\s+)?(confirmed|delivered|shipped)\b`),
		signal("benign:small_talk", models.CategoryNone, 0.4,
			`(?i)\b(happy\s+birthday|good\s+morning|good\s+night|see\s+you\s+(soon|tomorrow)|how\s+are\s+you)\b`),
	}
}

func disengageSignals() []Signal {
	return []Signal{
		signal("disengage:ended_contact", models.CategoryNone, 1,
			`(?i)\b(stop\s+(messaging|texting|contacting|calling)\s+me|don'?t\s+(message|contact|text|call)\s+me\s+(again|anymore|ever)|i\s*('m|\s+am)\s+blocking\s+you|i\s*('ll|\s+will)\s+block\s+you)\b`),
		signal("disengage:goodbye", models.CategoryNone, 1,
			`(?i)^\W*(ok(ay)?\W+)?(bye+|good\s*bye)\W*$`),
		signal("disengage:suspicious", models.CategoryNone, 1,
			`(?i)\b(are\s+you\s+(a\s+)?(bot|police|recording)|you('re|\s+are)\s+(a\s+)?(fake|bot|scammer)|i\s+know\s+you('re|\s+are)\s+(police|cyber\s*cell))\b`),
	}
}

func recognizer(kind models.IntelKind, name, label string, group int, expr string) Recognizer {
	return Recognizer{Kind: kind, Name: name, Label: label, re: regexp.MustCompile(expr), group: group}
}

func defaultRecognizers() []Recognizer {
	return []Recognizer{
		recognizer(models.KindBankAccount, "bank_account:digits", "", 0,
			`\b(?:\d{9,18}|\d{4}(?:[ -]\d{4}){2,3}(?:[ -]\d{1,2})?)\b`),
		recognizer(models.KindUPIID, "upi_id:handle", "", 0,
			`\b[a-zA-Z0-9][a-zA-Z0-9._-]{1,255}@[a-zA-Z][a-zA-Z0-9]{1,63}\b`),
		recognizer(models.KindPhoneNumber, "phone_number:in_mobile", "", 0,
			`(?:\+|\b)(?:91[\s-]?|0)?[6-9]\d{4}[\s-]?\d{5}\b`),
		recognizer(models.KindWhatsAppNumber, "whatsapp_number:wa_me", "", 1,
			`(?i)\bwa\.me/(\+?\d{10,13})\b`),
		recognizer(models.KindIFSCCode, "ifsc_code:shape", "", 0,
			`\b[A-Za-z]{4}[A-Za-z0-9]{7}\b`),
		recognizer(models.KindEmail, "email:address", "", 0,
			`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9-]+(?:\.[a-zA-Z0-9-]+)*\.[a-zA-Z]{2,}\b`),
		recognizer(models.KindPhishingLink, "phishing_link:url", "", 0,
			`(?i)\b(?:https?://|www\.)[^\s<>"']+`),
		recognizer(models.KindPhishingLink, "phishing_link:bare_domain", "", 0,
			`(?i)\b[a-z0-9][a-z0-9-]*(?:\.[a-z0-9-]+)*\.(?:com|in|net|org|xyz|top|info|co|io|live|online|site|click|link|me|ly|app|shop|cc|tk|ml|ga|cf|gq|buzz|icu)(?:/[^\s<>"']*)?\b`),
		recognizer(models.KindBeneficiaryName, "beneficiary_name:labelled", "", 1,
			`(?i:beneficiary(?:\s+name)?|account\s+holder(?:\s+name)?|a/c\s+holder(?:\s+name)?|payee(?:\s+name)?|name)\s*[:\-]\s*([A-Z][a-zA-Z.]+(?:[ \t]+[A-Z][a-zA-Z.]+){0,3})`),
		recognizer(models.KindBeneficiaryName, "beneficiary_name:in_the_name_of", "", 1,
			`(?i:in\s+the\s+name\s+of)\s+([A-Z][a-zA-Z.]+(?:[ \t]+[A-Z][a-zA-Z.]+){0,3})`),
		recognizer(models.KindOther, "other:reference_id", "reference_id", 1,
			`(?i:\b(?:reference|ref|txn|transaction|case|complaint|ticket|order)\s*(?:id|no\.?|number|#)\s*[:#-]?\s*)([A-Za-z0-9][A-Za-z0-9-]{3,})`),
		recognizer(models.KindOther, "other:officer_id", "officer_id", 1,
			`(?i:\b(?:employee|officer|badge|staff)\s*(?:id|no\.?|number|code)\s*[:#-]?\s*)([A-Za-z0-9][A-Za-z0-9-]{2,})`),
		recognizer(models.KindOther, "other:amount", "amount_mentioned", 1,
			`(?:₹|(?i:\brs\.?|\binr\b))\s?(\d[\d,]*(?:\.\d{1,2})?(?i:\s*(?:lakhs?|lacs?|crores?|cr|k)\b)?)`),
		recognizer(models.KindOther, "other:apk_file", "apk_file", 1,
			`(?i)\b([a-z0-9_.-]+\.apk)\b`),
	}
}

func bank(canonical, expr string) bankName {
	return bankName{canonical: canonical, re: regexp.MustCompile(expr)}
}

func defaultBanks() []bankName {
	return []bankName{
		bank("State Bank of India", `(?i)\bstate\s+bank\s+of\s+india\b|\bSBI\b`),
		bank("HDFC Bank", `(?i)\bhdfc(\s+bank)?\b`),
		bank("ICICI Bank", `(?i)\bicici(\s+bank)?\b`),
		bank("Axis Bank", `(?i)\baxis\s+bank\b`),
		bank("Punjab National Bank", `(?i)\bpunjab\s+national\s+bank\b|\bPNB\b`),
		bank("Bank of Baroda", `(?i)\bbank\s+of\s+baroda\b`),
		bank("Kotak Mahindra Bank", `(?i)\bkotak(\s+mahindra)?(\s+bank)?\b`),
		bank("Canara Bank", `(?i)\bcanara\s+bank\b`),
		bank("Union Bank of India", `(?i)\bunion\s+bank(\s+of\s+india)?\b`),
		bank("Bank of India", `(?i)\bbank\s+of\s+india\b`),
		bank("Central Bank of India", `(?i)\bcentral\s+bank\s+of\s+india\b`),
		bank("Indian Bank", `(?i)\bindian\s+bank\b`),
		bank("IndusInd Bank", `(?i)\bindusind(\s+bank)?\b`),
		bank("Yes Bank", `(?i)\byes\s+bank\b`),
		bank("IDFC First Bank", `(?i)\bidfc(\s+first)?(\s+bank)?\b`),
		bank("Paytm Payments Bank", `(?i)\bpaytm\s+payments?\s+bank\b`),
		bank("Airtel Payments Bank", `(?i)\bairtel\s+payments?\s+bank\b`),
		bank("Reserve Bank of India", `(?i)\breserve\s+bank\s+of\s+india\b|\bRBI\b`),
	}
}

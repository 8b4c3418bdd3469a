package bot

import "gitlab.com/manasline/api/wa-helpline-bot/internal/wa"

// Top-level menu categories.
const (
	CatReport = "CAT_REPORT"
	CatConf   = "CAT_CONF"
	CatRehab  = "CAT_REHAB"
	CatAbout  = "CAT_ABOUT"
)

// Quick-reply button sentinels.
const (
	BtnMainMenu = "BTN_MAIN_MENU"
	BtnMoreFAQs = "BTN_MORE_FAQS"
)

// FAQ identifiers.
const (
	FAQGenFullform   = "FAQ_GEN_FULLFORM"
	FAQGenWhat       = "FAQ_GEN_WHAT"
	FAQGenObjectives = "FAQ_GEN_OBJECTIVES"
	FAQGenManages    = "FAQ_GEN_MANAGES"
	FAQGenWho        = "FAQ_GEN_WHO"
	FAQGenSupport    = "FAQ_GEN_SUPPORT"
	FAQGenReach      = "FAQ_GEN_REACH"

	FAQRepTip  = "FAQ_REP_TIP"
	FAQRepHow  = "FAQ_REP_HOW"
	FAQRep247  = "FAQ_REP_247"
	FAQRepWhat = "FAQ_REP_WHAT"

	FAQConfIdent = "FAQ_CONF_IDENT"

	FAQRehHelp    = "FAQ_REH_HELP"
	FAQRehRole    = "FAQ_REH_ROLE"
	FAQReh14446   = "FAQ_REH_14446"
	FAQRehGetHelp = "FAQ_REH_GETHELP"

	FAQLawManuf = "FAQ_LAW_MANUF"
	FAQLawSeize = "FAQ_LAW_SEIZE"
)

// greetings trigger the welcome menu from free text.
var greetings = map[string]struct{}{
	"hi":    {},
	"hello": {},
	"hii":   {},
	"hey":   {},
	"menu":  {},
	"start": {},
	"manas": {},
}

// contactKeywords map free text onto the how-to-reach-us answer.
var contactKeywords = []string{"1933", "helpline", "contact"}

const welcomeBody = "👋 *Welcome to MANAS – National Narcotics Helpline (1933)*\n\n" +
	"Please select an option below. Your information can be shared *confidentially*.\n\n" +
	"_For emergencies, contact local authorities immediately._"

const fallbackBody = "I can help with reporting, confidentiality, rehab support, and MANAS information.\n\n" +
	"Type *Hi* to open the menu."

const answerFooter = "\n\n—\n📞 *Helpline:* 1933\n📧 info.ncbmanas@gov.in\n🌐 www.ncbmanas.gov.in\n\n" +
	"_You may remain anonymous. Information is handled confidentially._"

var mainMenuSections = []wa.ListSection{
	{
		Title: "Main Menu",
		Rows: []wa.ListRow{
			{ID: CatReport, Title: "📢 Report Crime", Description: "Submit a tip / report trafficking"},
			{ID: CatConf, Title: "👤 Confidentiality", Description: "Privacy, anonymity & safety"},
			{ID: CatRehab, Title: "🏥 Rehab Support", Description: "De-addiction & counseling help"},
			{ID: CatAbout, Title: "ℹ️ About MANAS", Description: "NCB/MANAS info & NDPS FAQs"},
		},
	},
}

// categoryConfig is the list content shown for one menu category.
type categoryConfig struct {
	Title      string
	ButtonText string
	Rows       []wa.ListRow
}

var categoryFAQs = map[string]categoryConfig{
	CatReport: {
		Title:      "📢 Report a Drug Crime",
		ButtonText: "Open FAQs",
		Rows: []wa.ListRow{
			{ID: FAQRepTip, Title: "Submit a tip", Description: "Call/Web/Email/UMANG"},
			{ID: FAQRepHow, Title: "Report a crime", Description: "How to report"},
			{ID: FAQRep247, Title: "Available 24/7?", Description: "Service hours"},
			{ID: FAQRepWhat, Title: "What can I report?", Description: "NDPS activities"},
		},
	},
	CatConf: {
		Title:      "👤 Confidentiality",
		ButtonText: "Open FAQs",
		Rows: []wa.ListRow{
			{ID: FAQConfIdent, Title: "Is it confidential?", Description: "Privacy & anonymity"},
		},
	},
	CatRehab: {
		Title:      "🏥 Rehab Support",
		ButtonText: "Open FAQs",
		Rows: []wa.ListRow{
			{ID: FAQRehHelp, Title: "Help an addict", Description: "What you can do"},
			{ID: FAQRehGetHelp, Title: "Get addiction help", Description: "Support & guidance"},
			{ID: FAQRehRole, Title: "Role of rehab", Description: "Why rehab matters"},
			{ID: FAQReh14446, Title: "MoSJE helpline", Description: "Counseling: 14446"},
		},
	},
	CatAbout: {
		Title:      "ℹ️ About NCB/MANAS",
		ButtonText: "Open FAQs",
		Rows: []wa.ListRow{
			{ID: FAQGenFullform, Title: "Full form?", Description: "MANAS meaning"},
			{ID: FAQGenWhat, Title: "What is MANAS?", Description: "About helpline 1933"},
			{ID: FAQGenObjectives, Title: "Objectives", Description: "Primary objectives"},
			{ID: FAQGenManages, Title: "Who manages?", Description: "Operated by NCB"},
			{ID: FAQGenWho, Title: "Who can use?", Description: "Citizens/informers/addicts"},
			{ID: FAQGenSupport, Title: "Support provided", Description: "3 levels of support"},
			{ID: FAQGenReach, Title: "How to reach?", Description: "1933/email/web/UMANG"},
			{ID: FAQLawManuf, Title: "Manufactured drugs", Description: "NDPS definition"},
			{ID: FAQLawSeize, Title: "Seize Rx drugs?", Description: "Why NCB seizes"},
		},
	},
}

var faqAnswers = map[string]string{
	FAQGenFullform: "✅ *What is MANAS and what is its full form?*\n\n" +
		"MANAS stands for *Madak Padarth Nished Aasuchna Kendra* (मादक - पदार्थ निषेध आसूचना – केंद्र).\n" +
		"It is a National Narcotics Helpline initiated by the Narcotics Control Bureau (NCB), Ministry of Home Affairs, to provide a 24x7 platform for citizens to report drug-related crimes and seek help for rehabilitation.",

	FAQGenWhat: "✅ *What is MANAS?*\n\n" +
		"MANAS is the National Narcotics Helpline *(1933)* by the Narcotics Control Bureau (NCB) for anonymous drug reporting and de-addiction support.",

	FAQGenObjectives: "✅ *What are the primary objectives of the MANAS helpline?*\n\n" +
		"1) Provide a 24x7 toll-free service *(1933)* for reporting drug issues.\n" +
		"2) Share information on government support services and schemes.\n" +
		"3) Offer integrated assistance to drug addicts and citizens under one roof.\n" +
		"4) Strengthen safety and awareness measures for informers and the general public.",

	FAQGenManages: "✅ *Who manages the MANAS helpline?*\n\n" +
		"MANAS is operated and managed by the Narcotics Control Bureau (NCB), the apex coordinating agency for drug law enforcement under the Ministry of Home Affairs, Government of India.",

	FAQGenWho: "✅ *Who can use the MANAS service?*\n\n" +
		"It is a dedicated platform for:\n" +
		"• *Drug Addicts:* Seeking support or rehabilitation\n" +
		"• *Informers:* Sharing tips on drug trafficking or illegal cultivation\n" +
		"• *Citizens:* Reporting drug-related issues in their neighborhoods",

	FAQGenSupport: "✅ *What specific support does the helpline provide?*\n\n" +
		"MANAS offers three core levels of assistance:\n" +
		"1) *24x7 Support:* toll-free telecom service available round-the-clock\n" +
		"2) *Resource Hub:* information on government schemes, support services, and local programs\n" +
		"3) *Integrated Assistance:* unified center where victims and informers can access support systems under one roof",

	FAQGenReach: "✅ *How can I reach the MANAS Helpline?*\n\n" +
		"You can connect through multiple secure channels:\n" +
		"• 📞 *Toll-Free Number:* 1933\n" +
		"• 📧 *Email:* info.ncbmanas@gov.in\n" +
		"• 🌐 *Web Portal:* www.ncbmanas.gov.in\n" +
		"• 📱 *Mobile:* UMANG App (search for MANAS)",

	FAQRepTip: "✅ *How can I submit a tip or report drug trafficking?*\n\n" +
		"You can share information through four secure channels:\n" +
		"1) Call: Dial *1933* (Toll-Free)\n" +
		"2) Web: www.ncbmanas.gov.in → \"Submit a Tip\"\n" +
		"3) Email: info.ncbmanas@gov.in\n" +
		"4) Mobile: UMANG App (search for MANAS)",

	FAQRepHow: "✅ *How do I report a drug crime?*\n\n" +
		"Dial *1933* (Toll-Free), email *info.ncbmanas@gov.in*, or use the UMANG App to report trafficking, storage, or cultivation.",

	FAQRep247: "✅ *Is it available 24/7?*\n\n" +
		"Yes. The service operates round-the-clock to ensure help is always a call away.",

	FAQRepWhat: "✅ *What kind of drug-related activities can I report?*\n\n" +
		"You can report any illicit activities under the NDPS Act, including:\n" +
		"• Drug trafficking or peddling\n" +
		"• Illegal sale, purchase, storage, or manufacturing\n" +
		"• Illicit cultivation of narcotic plants (like Opium poppy or Cannabis)",

	FAQConfIdent: "✅ *Will my identity be kept confidential if I report a crime?*\n\n" +
		"Yes. The identity of the informer and the information provided are kept strictly confidential and restricted.\n" +
		"You can also choose to remain completely anonymous when calling or submitting a tip.",

	FAQRehHelp: "✅ *How can I help someone who is a drug addict?*\n\n" +
		"A drug addict should be treated as a victim of a vicious cycle. You should:\n" +
		"1) Treat them with respect\n" +
		"2) Encourage them to seek professional medical help\n" +
		"3) Direct them to the nearest Government De-addiction Center for counseling and therapy",

	FAQRehRole: "✅ *What is the role of rehabilitation in recovery?*\n\n" +
		"While detoxification stops the immediate use, a rehabilitation program is essential to ensure the person stays drug-free and becomes a productive member of society.\n" +
		"MANAS connects users to these programs via the MoSJE portal.",

	FAQReh14446: "✅ *Is there a separate helpline for drug treatment and counseling?*\n\n" +
		"Yes. For specialized counseling and rehabilitation support, you can contact the Ministry of Social Justice & Empowerment (MoSJE) helpline at *14446*.",

	FAQRehGetHelp: "✅ *Can I get help for addiction?*\n\n" +
		"Yes. MANAS provides guidance for rehabilitation and counseling to help users break free from drug abuse.",

	FAQLawManuf: "✅ *What are 'Manufactured Drugs' under the NDPS Act?*\n\n" +
		"Manufactured drugs include all coca derivatives, medicinal cannabis, opium derivatives (like Heroin and Morphine), and any other narcotic substances declared by the Central Government via the Official Gazette.",

	FAQLawSeize: "✅ *Why does the NCB seize certain prescription drugs?*\n\n" +
		"Some prescription drugs are abused as substitutes for narcotics. If these drugs are found to be sold or used in violation of the NDPS Act, the NCB is authorized to seize them to prevent life-threatening abuse.",
}

// IsGreeting reports whether normalized text is a welcome trigger.
func IsGreeting(text string) bool {
	_, ok := greetings[text]
	return ok
}

// IsCategory reports whether id is one of the four top-level categories.
func IsCategory(id string) bool {
	_, ok := categoryFAQs[id]
	return ok
}

// FAQAnswer returns the answer body for a known FAQ id.
func FAQAnswer(id string) (string, bool) {
	answer, ok := faqAnswers[id]
	return answer, ok
}

package extract

import "github.com/itsarapong/satang/internal/model"

// amountRule captures one way an amount can appear in text. All rules for
// the input's language are evaluated; the highest-confidence candidate
// wins, ties broken by the longer literal match.
type amountRule struct {
	Name       string
	Regex      string
	Currency   string
	Confidence float64
}

// amountRules are keyed by language. Currency-adjacent numbers rank above
// bare numbers; a bare number is still enough to make an input parseable.
var amountRules = map[model.Language][]amountRule{
	model.LanguageEnglish: {
		{Name: "baht-suffix", Regex: `(?i)([\d,]+(?:\.\d+)?)\s*(?:baht|bht|thb)\b`, Currency: "THB", Confidence: 0.9},
		{Name: "baht-symbol", Regex: `฿\s*([\d,]+(?:\.\d+)?)`, Currency: "THB", Confidence: 0.9},
		{Name: "baht-symbol-suffix", Regex: `([\d,]+(?:\.\d+)?)\s*฿`, Currency: "THB", Confidence: 0.9},
		{Name: "thb-prefix", Regex: `(?i)\bthb\s*([\d,]+(?:\.\d+)?)`, Currency: "THB", Confidence: 0.85},
		{Name: "dollar-symbol", Regex: `\$\s*([\d,]+(?:\.\d+)?)`, Currency: "USD", Confidence: 0.9},
		{Name: "usd-suffix", Regex: `(?i)([\d,]+(?:\.\d+)?)\s*(?:usd|dollars?|bucks)\b`, Currency: "USD", Confidence: 0.9},
		{Name: "bare-number", Regex: `\b([\d,]+(?:\.\d+)?)\b`, Confidence: 0.6},
	},
	model.LanguageThai: {
		{Name: "baht-suffix", Regex: `([\d,๐-๙]+(?:\.[\d๐-๙]+)?)\s*(?:บาท|บ\.)`, Currency: "THB", Confidence: 0.9},
		{Name: "baht-symbol", Regex: `฿\s*([\d,๐-๙]+(?:\.[\d๐-๙]+)?)`, Currency: "THB", Confidence: 0.9},
		{Name: "baht-symbol-suffix", Regex: `([\d,๐-๙]+(?:\.[\d๐-๙]+)?)\s*฿`, Currency: "THB", Confidence: 0.9},
		{Name: "spend-verb", Regex: `(?:ราคา|จ่าย|เสีย|รวม)\s*([\d,๐-๙]+(?:\.[\d๐-๙]+)?)`, Confidence: 0.75},
		{Name: "bare-number", Regex: `([\d,๐-๙]+(?:\.[\d๐-๙]+)?)`, Confidence: 0.6},
	},
}

// keywordRule maps a literal keyword to a field value with a fixed
// confidence. English keywords match on word boundaries; Thai keywords
// match as substrings since Thai is written without spaces.
type keywordRule struct {
	Keyword    string
	Value      string
	Confidence float64
}

// categoryKeywords give the extractor's own category guess. The mapping
// resolver may override these with a learned mapping.
var categoryKeywords = map[model.Language][]keywordRule{
	model.LanguageEnglish: {
		{Keyword: "coffee", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "latte", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "cafe", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "breakfast", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "lunch", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "dinner", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "restaurant", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "pizza", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "burger", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "noodle", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "food", Value: "Food & Dining", Confidence: 0.6},
		{Keyword: "grocery", Value: "Groceries", Confidence: 0.7},
		{Keyword: "groceries", Value: "Groceries", Confidence: 0.7},
		{Keyword: "supermarket", Value: "Groceries", Confidence: 0.7},
		{Keyword: "market", Value: "Groceries", Confidence: 0.6},
		{Keyword: "taxi", Value: "Transportation", Confidence: 0.7},
		{Keyword: "grab", Value: "Transportation", Confidence: 0.7},
		{Keyword: "uber", Value: "Transportation", Confidence: 0.7},
		{Keyword: "bts", Value: "Transportation", Confidence: 0.7},
		{Keyword: "mrt", Value: "Transportation", Confidence: 0.7},
		{Keyword: "bus", Value: "Transportation", Confidence: 0.7},
		{Keyword: "train", Value: "Transportation", Confidence: 0.7},
		{Keyword: "fuel", Value: "Transportation", Confidence: 0.7},
		{Keyword: "gas", Value: "Transportation", Confidence: 0.6},
		{Keyword: "parking", Value: "Transportation", Confidence: 0.7},
		{Keyword: "movie", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "cinema", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "netflix", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "spotify", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "game", Value: "Entertainment", Confidence: 0.6},
		{Keyword: "concert", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "electricity", Value: "Bills & Utilities", Confidence: 0.7},
		{Keyword: "electric bill", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "water bill", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "internet", Value: "Bills & Utilities", Confidence: 0.7},
		{Keyword: "phone bill", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "rent", Value: "Bills & Utilities", Confidence: 0.7},
		{Keyword: "pharmacy", Value: "Health", Confidence: 0.7},
		{Keyword: "medicine", Value: "Health", Confidence: 0.7},
		{Keyword: "doctor", Value: "Health", Confidence: 0.7},
		{Keyword: "hospital", Value: "Health", Confidence: 0.7},
		{Keyword: "dentist", Value: "Health", Confidence: 0.7},
		{Keyword: "clothes", Value: "Shopping", Confidence: 0.7},
		{Keyword: "shirt", Value: "Shopping", Confidence: 0.7},
		{Keyword: "shoes", Value: "Shopping", Confidence: 0.7},
		{Keyword: "mall", Value: "Shopping", Confidence: 0.6},
		{Keyword: "shopping", Value: "Shopping", Confidence: 0.6},
		{Keyword: "hotel", Value: "Travel", Confidence: 0.7},
		{Keyword: "flight", Value: "Travel", Confidence: 0.7},
		{Keyword: "airfare", Value: "Travel", Confidence: 0.7},
		{Keyword: "book", Value: "Education", Confidence: 0.6},
		{Keyword: "course", Value: "Education", Confidence: 0.7},
		{Keyword: "tuition", Value: "Education", Confidence: 0.75},
	},
	model.LanguageThai: {
		{Keyword: "กาแฟ", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "ข้าว", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "อาหาร", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "ก๋วยเตี๋ยว", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "ชานม", Value: "Food & Dining", Confidence: 0.7},
		{Keyword: "ร้านอาหาร", Value: "Food & Dining", Confidence: 0.75},
		{Keyword: "กิน", Value: "Food & Dining", Confidence: 0.6},
		{Keyword: "ตลาด", Value: "Groceries", Confidence: 0.6},
		{Keyword: "ซุปเปอร์", Value: "Groceries", Confidence: 0.7},
		{Keyword: "ของใช้", Value: "Groceries", Confidence: 0.6},
		{Keyword: "แท็กซี่", Value: "Transportation", Confidence: 0.7},
		{Keyword: "แกร็บ", Value: "Transportation", Confidence: 0.7},
		{Keyword: "รถเมล์", Value: "Transportation", Confidence: 0.7},
		{Keyword: "รถไฟ", Value: "Transportation", Confidence: 0.7},
		{Keyword: "บีทีเอส", Value: "Transportation", Confidence: 0.7},
		{Keyword: "วินมอเตอร์ไซค์", Value: "Transportation", Confidence: 0.75},
		{Keyword: "น้ำมัน", Value: "Transportation", Confidence: 0.7},
		{Keyword: "ค่ารถ", Value: "Transportation", Confidence: 0.7},
		{Keyword: "หนัง", Value: "Entertainment", Confidence: 0.6},
		{Keyword: "เกม", Value: "Entertainment", Confidence: 0.6},
		{Keyword: "คอนเสิร์ต", Value: "Entertainment", Confidence: 0.7},
		{Keyword: "ค่าไฟ", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "ค่าน้ำ", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "ค่าเน็ต", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "ค่าโทรศัพท์", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "ค่าเช่า", Value: "Bills & Utilities", Confidence: 0.75},
		{Keyword: "ยา", Value: "Health", Confidence: 0.6},
		{Keyword: "หมอ", Value: "Health", Confidence: 0.7},
		{Keyword: "โรงพยาบาล", Value: "Health", Confidence: 0.7},
		{Keyword: "เสื้อ", Value: "Shopping", Confidence: 0.7},
		{Keyword: "รองเท้า", Value: "Shopping", Confidence: 0.7},
		{Keyword: "ห้าง", Value: "Shopping", Confidence: 0.6},
		{Keyword: "โรงแรม", Value: "Travel", Confidence: 0.7},
		{Keyword: "ตั๋วเครื่องบิน", Value: "Travel", Confidence: 0.75},
		{Keyword: "หนังสือ", Value: "Education", Confidence: 0.7},
		{Keyword: "ค่าเทอม", Value: "Education", Confidence: 0.75},
	},
}

// paymentKeywords detect the payment instrument.
var paymentKeywords = map[model.Language][]keywordRule{
	model.LanguageEnglish: {
		{Keyword: "cash", Value: string(model.PaymentCash), Confidence: 0.85},
		{Keyword: "credit card", Value: string(model.PaymentCard), Confidence: 0.9},
		{Keyword: "debit card", Value: string(model.PaymentCard), Confidence: 0.9},
		{Keyword: "card", Value: string(model.PaymentCard), Confidence: 0.85},
		{Keyword: "visa", Value: string(model.PaymentCard), Confidence: 0.8},
		{Keyword: "mastercard", Value: string(model.PaymentCard), Confidence: 0.8},
		{Keyword: "bank transfer", Value: string(model.PaymentTransfer), Confidence: 0.9},
		{Keyword: "transfer", Value: string(model.PaymentTransfer), Confidence: 0.85},
		{Keyword: "promptpay", Value: string(model.PaymentPromptPay), Confidence: 0.9},
	},
	model.LanguageThai: {
		{Keyword: "เงินสด", Value: string(model.PaymentCash), Confidence: 0.85},
		{Keyword: "บัตรเครดิต", Value: string(model.PaymentCard), Confidence: 0.9},
		{Keyword: "บัตร", Value: string(model.PaymentCard), Confidence: 0.85},
		{Keyword: "โอน", Value: string(model.PaymentTransfer), Confidence: 0.85},
		{Keyword: "พร้อมเพย์", Value: string(model.PaymentPromptPay), Confidence: 0.9},
		{Keyword: "สแกนจ่าย", Value: string(model.PaymentPromptPay), Confidence: 0.8},
	},
}

// merchantRule captures a positional merchant heuristic ("at X", "ที่X").
type merchantRule struct {
	Name       string
	Regex      string
	Confidence float64
}

var merchantRules = map[model.Language][]merchantRule{
	model.LanguageEnglish: {
		{Name: "at-merchant", Regex: `\b(?:at|from)\s+([A-Z][A-Za-z0-9'&.-]*(?:\s+[A-Z][A-Za-z0-9'&.-]*)*)`, Confidence: 0.8},
	},
	model.LanguageThai: {
		{Name: "thai-locative", Regex: `(?:ที่ร้าน|ที่|ร้าน)\s*([\p{Thai}]+|[A-Za-z0-9&.-]+)`, Confidence: 0.8},
	},
}

// knownBrands normalize common merchant tokens to a canonical name.
// Matched case-insensitively on word boundaries for English and as
// substrings for Thai.
var knownBrands = map[model.Language]map[string]string{
	model.LanguageEnglish: {
		"starbucks":   "Starbucks",
		"mcdonalds":   "McDonald's",
		"mcdonald's":  "McDonald's",
		"kfc":         "KFC",
		"7-eleven":    "7-Eleven",
		"7-11":        "7-Eleven",
		"big c":       "Big C",
		"lotus":       "Lotus's",
		"tesco lotus": "Lotus's",
		"grab":        "Grab",
		"foodpanda":   "Foodpanda",
		"lazada":      "Lazada",
		"shopee":      "Shopee",
		"netflix":     "Netflix",
		"spotify":     "Spotify",
		"ais":         "AIS",
	},
	model.LanguageThai: {
		"เซเว่น":      "7-Eleven",
		"สตาร์บัคส์":  "Starbucks",
		"แกร็บ":       "Grab",
		"โลตัส":       "Lotus's",
		"บิ๊กซี":      "Big C",
		"แมคโดนัลด์":  "McDonald's",
		"ฟู้ดแพนด้า":  "Foodpanda",
	},
}

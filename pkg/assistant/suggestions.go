package assistant

const AudienceCustomer = "customer"

var adminSuggestions = []string{
	"📊 สถิติการสนทนาวันนี้เป็นอย่างไร?",
	"😊 ความรู้สึกของลูกค้าโดยรวมเป็นอย่างไร?",
	"🏷️ หัวข้อไหนที่ลูกค้าสนทนากันบ่อยที่สุด?",
	"⏱️ เวลาตอบกลับเฉลี่ยเป็นเท่าไหร่?",
	"💡 มีข้อเสนอแนะในการปรับปรุงบริการไหม?",
	"📈 แนวโน้มการสนทนาในช่วง 7 วันที่ผ่านมา",
	"🎯 ปัญหาที่พบบ่อยที่สุดคืออะไร?",
	"🔍 วิเคราะห์ประสิทธิภาพทีมงาน",
}

var customerSuggestions = []string{
	"🛍️ สอบถามข้อมูลสินค้า",
	"💰 สอบถามราคา",
	"🚚 สอบถามการจัดส่ง",
	"🔄 สอบถามการคืนสินค้า",
	"❓ สอบถามข้อมูลทั่วไป",
}

// HelpSuggestions lists example questions. Staff get the analytics questions,
// AudienceCustomer gets the customer ones.
func HelpSuggestions(audience string) []string {
	src := adminSuggestions
	if audience == AudienceCustomer {
		src = customerSuggestions
	}
	return append([]string(nil), src...)
}

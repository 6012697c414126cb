package receipt

// Labels are the fixed captions printed on a receipt.
type Labels struct {
	Title          string `json:"title"`
	PrintTime      string `json:"print_time"`
	ReceiptNumber  string `json:"receipt_number"`
	Customer       string `json:"customer"`
	Unspecified    string `json:"unspecified"`
	Company        string `json:"company"`
	Receiver       string `json:"receiver"`
	Province       string `json:"province"`
	Shipping       string `json:"shipping"`
	Packaging      string `json:"packaging"`
	Other          string `json:"other"`
	Discount       string `json:"discount"`
	Net            string `json:"net"`
	ParcelCount    string `json:"parcel_count"`
	TotalShipping  string `json:"total_shipping"`
	TotalPackaging string `json:"total_packaging"`
	TotalOther     string `json:"total_other"`
	TotalDiscount  string `json:"total_discount"`
	GrandTotal     string `json:"grand_total"`
}

// Languages with built-in labels.
const (
	LangEnglish = "en"
	LangThai    = "th"
)

var english = Labels{
	Title:          "Receipt",
	PrintTime:      "Print time",
	ReceiptNumber:  "No.",
	Customer:       "Customer",
	Unspecified:    "unspecified",
	Company:        "Carrier",
	Receiver:       "Receiver",
	Province:       "Province",
	Shipping:       "Shipping",
	Packaging:      "Packaging",
	Other:          "Other cost",
	Discount:       "Discount",
	Net:            "Net",
	ParcelCount:    "Parcels",
	TotalShipping:  "Total shipping",
	TotalPackaging: "Total packaging",
	TotalOther:     "Total other cost",
	TotalDiscount:  "Total discount",
	GrandTotal:     "Grand total",
}

var thai = Labels{
	Title:          "ใบเสร็จรับเงิน",
	PrintTime:      "เวลาพิมพ์",
	ReceiptNumber:  "เลขที่",
	Customer:       "ลูกค้า",
	Unspecified:    "ไม่ระบุ",
	Company:        "ขนส่ง",
	Receiver:       "ผู้รับ",
	Province:       "จังหวัด",
	Shipping:       "ค่าขนส่ง",
	Packaging:      "ค่าบรรจุภัณฑ์",
	Other:          "ค่าใช้จ่ายอื่น",
	Discount:       "ส่วนลด",
	Net:            "ราคาสุทธิ",
	ParcelCount:    "จำนวนพัสดุ",
	TotalShipping:  "รวมค่าขนส่ง",
	TotalPackaging: "รวมค่าบรรจุภัณฑ์",
	TotalOther:     "รวมค่าใช้จ่ายอื่น",
	TotalDiscount:  "รวมส่วนลด",
	GrandTotal:     "ยอดรวมทั้งหมด",
}

// LabelsFor returns the labels of lang, English when unknown.
func LabelsFor(lang string) Labels {
	if lang == LangThai {
		return thai
	}
	return english
}

// Carrier is a shipping company offered by the order form.
type Carrier struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	NameThai string `json:"name_th"`
}

// Carriers lists the known shipping companies in form order.
var Carriers = []Carrier{
	{ID: "thailand-post", Name: "Thailand Post", NameThai: "ไปรษณีย์ไทย"},
	{ID: "flash-express", Name: "Flash Express", NameThai: "Flash Express"},
}

// CarrierName returns the display name of a carrier id. Unknown ids are
// printed as given.
func CarrierName(id, lang string) string {
	for _, c := range Carriers {
		if c.ID == id {
			if lang == LangThai {
				return c.NameThai
			}
			return c.Name
		}
	}
	return id
}

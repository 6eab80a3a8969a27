package httpapi

import "internship/internal/model"

// statusLabels are the Thai display strings shown by the portal.
var statusLabels = map[model.Status]string{
	model.StatusPendingAdvisor:         "รออาจารย์ที่ปรึกษาอนุมัติ",
	model.StatusPendingAdminReview:     "รอเจ้าหน้าที่ตรวจสอบ",
	model.StatusPendingCompanyResponse: "รอการตอบรับจากบริษัท",
	model.StatusApproved:               "อนุมัติแล้ว",
	model.StatusInProgress:             "ออกฝึกงาน",
	model.StatusCompleted:              "ฝึกงานเสร็จแล้ว",
	model.StatusRejectedByAdvisor:      "อาจารย์ที่ปรึกษาไม่อนุมัติ",
	model.StatusRejectedByAdmin:        "เจ้าหน้าที่ไม่อนุมัติ",
	model.StatusRejectedByCompany:      "บริษัทปฏิเสธ",
}

// StatusLabel returns the display string for s, or s itself when unknown.
func StatusLabel(s model.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

package marketplace

import "encoding/json"

// envelope is the common response wrapper returned by every endpoint.
type envelope struct {
	ErrNo   int    `json:"err_no"`
	Message string `json:"message"`
	LogID   string `json:"log_id"`
}

// IsSuccess reports whether the platform accepted the request.
func (e *envelope) IsSuccess() bool {
	return e.ErrNo == 0
}

// listResponse is a paginated listing. Items stay raw JSON; interpreting
// their shape is the field mapper's job, not the transport's.
type listResponse struct {
	envelope
	Data *struct {
		Total int64             `json:"total"`
		List  []json.RawMessage `json:"list"`
	} `json:"data"`
}

// orderDetailResponse carries the parent-order detail. Only the logistics
// fragment is decoded; everything else in the payload is ignored here.
type orderDetailResponse struct {
	envelope
	Data *struct {
		ShopOrderDetail *struct {
			OrderID       string `json:"order_id"`
			LogisticsInfo []struct {
				PackageID  string `json:"package_id"`
				TrackingNo string `json:"tracking_no"`
				Company    string `json:"company"`
			} `json:"logistics_info"`
		} `json:"shop_order_detail"`
	} `json:"data"`
}

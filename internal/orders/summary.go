package orders

// Summary backs the dashboard counters. in_progress covers everything
// between confirmation and delivery.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

func Summarize(list []Order) Summary {
	var s Summary
	s.Total = len(list)
	for _, o := range list {
		switch o.Status {
		case StatusPending:
			s.Pending++
		case StatusConfirmed, StatusPreparing, StatusShipped:
			s.InProgress++
		case StatusDelivered:
			s.Delivered++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}

package service

// ComputeMessageER returns the engagement rate of one message: the share of
// its readers who also reacted to it or replied in its thread, in percent.
// Engagement requires having read: a reactor or commenter absent from the
// reader set does not count. Always within [0, 100].
func ComputeMessageER(readers, reactors, commenters map[int64]struct{}) float64 {
	if len(readers) == 0 {
		return 0
	}

	engagedAndRead := 0
	for userID := range readers {
		if _, ok := reactors[userID]; ok {
			engagedAndRead++
			continue
		}
		if _, ok := commenters[userID]; ok {
			engagedAndRead++
		}
	}

	return float64(engagedAndRead) / float64(len(readers)) * 100
}

package domain

import "errors"

// ErrEmptyDataset 表示统计/随机挑选时没有可用数据（空列表或没有任何评分）。
// 这不是致命错误：调用方应提示“无数据”，而不是中断会话。
var ErrEmptyDataset = errors.New("empty dataset")

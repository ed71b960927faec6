package session

import (
	"math"
	"strconv"
)

// Average 计算公开后显示的平均点数。
// 只有能解析为有限数值的出牌参与计算：哨兵"?"以及任何
// 非数值条目既不计入分子也不计入分母。这是有意为之的策略，
// 不是疏漏——"不知道"不应拉低或抬高团队的估点。
// 没有任何数值出牌时返回0；结果四舍五入到一位小数。
func Average(votes map[string]string) float64 {
	var sum float64
	var count int
	for _, value := range votes {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		sum += f
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Round(sum/float64(count)*10) / 10
}

package repository

import (
	"fmt"

	"github.com/hitoshi/vitafeed/internal/model"
)

// followingSubquery はビューアがアクティブにフォローしているユーザーID集合の
// サブクエリを返す。argIdxはfollower_idのプレースホルダ番号。
func followingSubquery(argIdx int) string {
	return fmt.Sprintf(
		"SELECT following_id FROM follows WHERE follower_id = $%d AND is_active", argIdx)
}

// itemPredicateSQL はItemPredicateをSQLのWHERE条件に翻訳する。
// prefixはカラム名の前置詞（"p."など、不要な場合は空文字）。
// startIdxは最初のプレースホルダ番号。条件文字列とバインド引数を返す。
//
// フィルタと公開範囲の解決ルール:
//   - my_posts:  本人のアイテムのみ（公開範囲は問わない）
//   - following: アクティブにフォロー中のユーザーのアイテムのみ。
//     privateはフォロー関係があっても含めない。
//   - all:       publicすべて、本人のアイテムすべて、および
//     フォロー中ユーザーのfollowers_only。匿名の場合はpublicのみ。
//
// following/my_postsで匿名の場合の空結果はアグリゲータ側で処理されるため、
// ここではビューアが存在する前提で翻訳する。
func itemPredicateSQL(pred model.ItemPredicate, prefix string, startIdx int) (string, []any) {
	owner := prefix + "user_id"
	vis := prefix + "visibility"

	switch pred.Filter {
	case model.FilterMyPosts:
		return fmt.Sprintf("%s = $%d", owner, startIdx), []any{pred.ViewerID}

	case model.FilterFollowing:
		return fmt.Sprintf(
				"(%s IN (%s) AND %s IN ('public', 'followers_only'))",
				owner, followingSubquery(startIdx), vis),
			[]any{pred.ViewerID}

	default: // model.FilterAll
		if pred.Anonymous() {
			return fmt.Sprintf("%s = 'public'", vis), nil
		}
		return fmt.Sprintf(
				"(%s = 'public' OR %s = $%d OR (%s = 'followers_only' AND %s IN (%s)))",
				vis, owner, startIdx, vis, owner, followingSubquery(startIdx+1)),
			[]any{pred.ViewerID, pred.ViewerID}
	}
}

package store

import "github.com/google/uuid"

// CategoryCommonQuestion 内置语料的统一分类
const CategoryCommonQuestion = "common_question"

// builtinSourceName 内置语料的来源标记
const builtinSourceName = "builtin"

// builtinQA 内置的常见问题与标准答案
var builtinQA = []struct {
	question string
	answer   string
}{
	{"学校地址在哪里", "江西工业工程职业技术学院位于江西省萍乡市安源区建设东路268号"},
	{"图书馆开放时间", "图书馆开放时间为周一至周五 8:00-22:00，周末 9:00-20:00"},
	{"奖学金申请条件", "奖学金申请条件包括：1. 学习成绩优秀；2. 遵守校规校纪；3. 积极参与课外活动；4. 家庭经济困难学生优先考虑"},
	{"如何注册账号", "新生可通过学校官网的新生注册系统，使用录取通知书上的学号和初始密码进行注册"},
	{"就业指导中心联系方式", "就业指导中心联系电话：0799-6351234，办公地点：行政楼2楼"},
	{"宿舍管理规定", "宿舍开放时间为6:00-23:00，禁止使用大功率电器，保持宿舍卫生整洁"},
	{"食堂就餐时间", "第一食堂：早餐6:30-8:30，午餐11:00-13:00，晚餐17:00-19:00"},
	{"学生证办理流程", "新生入学后由辅导员统一收集照片和信息，一周内发放学生证"},
	{"选课系统开放时间", "每学期开学前两周开放选课系统，请关注教务处通知"},
	{"校园卡服务中心", "校园卡服务中心位于图书馆一楼大厅，提供办卡、充值、挂失等服务"},
}

// BuiltinCorpus 返回内置校园语料。每次调用生成新的 DocID；
// 数据库不可用时可直接用于构建内存向量索引。
func BuiltinCorpus() []Document {
	docs := make([]Document, len(builtinQA))
	for i, qa := range builtinQA {
		docs[i] = Document{
			DocID:      uuid.NewString(),
			Title:      qa.question,
			Content:    qa.answer,
			Category:   CategoryCommonQuestion,
			SourceName: builtinSourceName,
		}
	}
	return docs
}
